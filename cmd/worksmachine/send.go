package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/guilledk/telos-works/auxiliarium/ballots"
	"github.com/guilledk/telos-works/auxiliarium/proposals"
	"github.com/guilledk/telos-works/messaging/eventers"
	"github.com/guilledk/telos-works/worksmachine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var client = &http.Client{Timeout: 15 * time.Second}

// build turns command line arguments into a signed event.
type build func(e *eventers.Eventer, args []string) (worksmachine.Event, error)

func apiURL(cmd *cobra.Command) string {
	u, _ := cmd.Flags().GetString("api")
	if len(u) == 0 {
		u = "http://" + worksmachine.MakeOrGetConfig().GetString("apiAddr")
	}
	return strings.TrimSuffix(u, "/")
}

func nextSequence(base string, account worksmachine.Account) (int64, error) {
	resp, err := client.Get(base + "/v1/sequence/" + account)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var s struct {
		Next int64 `json:"next"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return 0, err
	}
	return s.Next, nil
}

func post(base string, e worksmachine.Event) error {
	n := e.Nostr()
	b, err := json.Marshal(&n)
	if err != nil {
		return err
	}
	resp, err := client.Post(base+"/v1/events", "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	fmt.Println(string(body))
	return nil
}

func sendSubcommand(use, short string, args cobra.PositionalArgs, b build) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := apiURL(cmd)
			w := worksmachine.MyWallet()
			next, err := nextSequence(base, w.Account)
			if err != nil {
				return err
			}
			e, err := b(eventers.New(w, next-1), args)
			if err != nil {
				return err
			}
			return post(base, e)
		},
	}
}

// asset reads "10.0000 TLOS" given as one argument or as two.
func asset(args []string) (worksmachine.Asset, error) {
	return worksmachine.ParseAsset(strings.Join(args, " "))
}

func sendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Sign a command with the operator wallet and submit it to a running node",
	}
	cmd.PersistentFlags().String("api", "", "base URL of the node, defaults to apiAddr from the config")

	amount := func(f func(e *eventers.Eventer, a worksmachine.Asset) (worksmachine.Event, error)) build {
		return func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
			a, err := asset(args)
			if err != nil {
				return worksmachine.Event{}, err
			}
			return f(e, a)
		}
	}
	cmd.AddCommand(
		sendSubcommand("deposit <amount> <symbol>", "Deposit into the treasury", cobra.RangeArgs(1, 2), amount((*eventers.Eventer).Deposit)),
		sendSubcommand("withdraw <amount> <symbol>", "Withdraw from your balance", cobra.RangeArgs(1, 2), amount((*eventers.Eventer).Withdraw)),
		sendSubcommand("fund <amount> <symbol>", "Fund the treasury without a balance", cobra.RangeArgs(1, 2), amount((*eventers.Eventer).Fund)),
		sendSubcommand("add-milestone <proposal> <amount> <symbol>", "Append a milestone to a draft", cobra.RangeArgs(2, 3),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				a, err := asset(args[1:])
				if err != nil {
					return worksmachine.Event{}, err
				}
				return e.AddMilestone(args[0], a)
			}),
		sendSubcommand("remove-milestone <proposal>", "Remove the last milestone of a draft", cobra.ExactArgs(1),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				return e.RemoveMilestone(args[0])
			}),
		sendSubcommand("submit <proposal>", "Submit a draft for voting", cobra.ExactArgs(1),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				return e.Submit(args[0])
			}),
		sendSubcommand("report <proposal> <milestone> <report>", "Report on a passed milestone", cobra.MinimumNArgs(3),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				id, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return worksmachine.Event{}, err
				}
				return e.Report(args[0], id, strings.Join(args[2:], " "))
			}),
		sendSubcommand("resolve <ballot>", "Close a ballot and apply its outcome", cobra.ExactArgs(1),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				return e.Resolve(args[0])
			}),
		sendSubcommand("vote <ballot> <voter> <choice> <weight> <supply>", "Publish a weighted vote (vote source only)", cobra.ExactArgs(5),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				weight, err := worksmachine.ParseAsset(args[3])
				if err != nil {
					return worksmachine.Event{}, err
				}
				supply, err := worksmachine.ParseAsset(args[4])
				if err != nil {
					return worksmachine.Event{}, err
				}
				return e.Vote(ballots.Kind641200{Ballot: args[0], Voter: args[1], Choice: args[2], Weight: weight, Supply: supply})
			}),
		sendSubcommand("set-version <version>", "Set the application version (admin only)", cobra.ExactArgs(1),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				return e.SetVersion(args[0])
			}),
		sendSubcommand("set-admin <account>", "Hand the admin role to another account (admin only)", cobra.ExactArgs(1),
			func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
				return e.SetAdmin(args[0])
			}),
		draftCommand(),
		editCommand(),
	)
	return cmd
}

func draftCommand() *cobra.Command {
	var d proposals.Kind641100
	var total string
	cmd := sendSubcommand("draft", "Draft a new proposal", cobra.NoArgs,
		func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
			a, err := worksmachine.ParseAsset(total)
			if err != nil {
				return worksmachine.Event{}, err
			}
			d.TotalRequested = a
			return e.Draft(d)
		})
	cmd.Flags().StringVar(&d.Name, "name", "", "proposal name, up to 12 characters of a-z, 1-5 and .")
	cmd.Flags().StringVar(&d.Title, "title", "", "")
	cmd.Flags().StringVar(&d.Description, "description", "", "")
	cmd.Flags().StringVar(&d.Content, "content", "", "")
	cmd.Flags().StringVar(&d.Category, "category", "", "")
	cmd.Flags().StringVar(&total, "total", "", `total requested, e.g. "1200.0000 TLOS"`)
	cmd.Flags().Int64Var(&d.Milestones, "milestones", 1, "number of milestones")
	return cmd
}

func editCommand() *cobra.Command {
	var d proposals.Kind641102
	cmd := sendSubcommand("edit", "Edit a proposal while it is drafting", cobra.NoArgs,
		func(e *eventers.Eventer, args []string) (worksmachine.Event, error) {
			return e.Edit(d)
		})
	cmd.Flags().StringVar(&d.Name, "name", "", "proposal name")
	cmd.Flags().StringVar(&d.Title, "title", "", "")
	cmd.Flags().StringVar(&d.Description, "description", "", "")
	cmd.Flags().StringVar(&d.Content, "content", "", "")
	cmd.Flags().StringVar(&d.Category, "category", "", "")
	return cmd
}
