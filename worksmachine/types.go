package worksmachine

import (
	"bytes"
)

// Account is the hex encoded schnorr public key of a participant.
type Account = string

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

type S256Hash = string

// HashSeq is the state fingerprint a Mind returns after it commits a command.
type HashSeq struct {
	Hash      S256Hash
	Sequence  int64
	Mind      string
	Data      bytes.Buffer
	CreatedAt int64
	EventID   S256Hash //optional
}
