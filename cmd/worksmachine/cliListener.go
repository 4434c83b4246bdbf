package main

import (
	"fmt"
	"sort"

	"github.com/eiannone/keyboard"

	"github.com/guilledk/telos-works/consensus/conductor"
	"github.com/guilledk/telos-works/messaging/api"
	"github.com/guilledk/telos-works/worksmachine"
)

// cliListener is a cheap way to inspect a running node. It listens for keypresses and prints state.
func cliListener(c *conductor.Conductor, server *api.Server) {
	fmt.Println("Press:\nq: to quit\nt: to print the treasury\np: to print proposals\nb: to print ballots\nc: to print the policy\ns: to print stats\nw: to print your current wallet\nK: to print kinds")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			worksmachine.LogCLI(err.Error(), 2)
			return
		}
		switch string(r) {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + string(r) + " is not bound to anything. See cliListener.go for more details.")
		case "q":
			worksmachine.LogCLI("User requested to terminate", 4)
			worksmachine.Shutdown()
			return //if we do not return here, we cannot ctrl+c in case of errors during shutdown
		case "t":
			fmt.Printf("\n%#v\n", c.Ledger().Treasury())
		case "p":
			for _, p := range c.Proposals().All() {
				fmt.Printf("\n%s [%s] %s requested %s remaining %s milestone %d/%d ballot %s\n",
					p.Name, p.Status, p.Title, p.TotalRequested, p.Remaining, p.CurrentMilestone, p.Milestones, p.CurrentBallot)
			}
		case "b":
			for _, b := range c.Ballots().All() {
				fmt.Printf("\n%s [%s] yes %s no %s abstain %s supply %s\n",
					b.Name, b.Status, b.Results.Yes, b.Results.No, b.Results.Abstain, b.Supply)
			}
		case "c":
			fmt.Printf("\n%#v\n", c.Policy())
		case "s":
			sum, err := server.Summary()
			if err != nil {
				worksmachine.LogCLI(err.Error(), 2)
				break
			}
			fmt.Printf("\n%#v\n", sum)
		case "w":
			w := worksmachine.MyWallet()
			fmt.Printf("\nAccount: %s\nNext sequence: %d\n", w.Account, c.NextSequence(w.Account))
		case "K":
			kinds := worksmachine.GetAllKinds()
			var sorted []int64
			for kind := range kinds {
				sorted = append(sorted, kind)
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			for _, kind := range sorted {
				fmt.Printf("Kind: %d Mind: %s\n", kind, kinds[kind])
			}
		}
	}
}
