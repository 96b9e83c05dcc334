package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	contractMessaging bool
	contractNote      string
)

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage the contract and method whitelist",
}

var whitelistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List whitelisted contracts",
	Run:   runWhitelistList,
}

var whitelistAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Whitelist a contract address",
	Args:  cobra.ExactArgs(1),
	Run:   runWhitelistAdd,
}

var whitelistRemoveCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Remove a contract from the whitelist",
	Args:  cobra.ExactArgs(1),
	Run:   runWhitelistRemove,
}

var whitelistAddMethodCmd = &cobra.Command{
	Use:   "add-method <address> <selector>",
	Short: "Whitelist a 4-byte selector on a contract",
	Args:  cobra.ExactArgs(2),
	Run:   runWhitelistAddMethod,
}

var whitelistRemoveMethodCmd = &cobra.Command{
	Use:   "remove-method <address> <selector>",
	Short: "Remove a selector from a contract's whitelist",
	Args:  cobra.ExactArgs(2),
	Run:   runWhitelistRemoveMethod,
}

func init() {
	rootCmd.AddCommand(whitelistCmd)
	whitelistCmd.AddCommand(whitelistListCmd)
	whitelistCmd.AddCommand(whitelistAddCmd)
	whitelistCmd.AddCommand(whitelistRemoveCmd)
	whitelistCmd.AddCommand(whitelistAddMethodCmd)
	whitelistCmd.AddCommand(whitelistRemoveMethodCmd)

	whitelistAddCmd.Flags().BoolVar(&contractMessaging, "messaging", false,
		"Also allow the contract to receive dApp messages on settlement")
	whitelistAddCmd.Flags().StringVar(&contractNote, "note", "", "Operator note")
}

type contractRow struct {
	Address   string `json:"address"`
	Messaging bool   `json:"messaging"`
	Note      string `json:"note"`
	CreatedAt string `json:"created_at"`
}

func runWhitelistList(_ *cobra.Command, _ []string) {
	var rows []contractRow
	if err := callAdminAPI(http.MethodGet, "/v1/whitelist/contracts", nil, &rows); err != nil {
		fatal(err)
	}

	if len(rows) == 0 {
		fmt.Println("whitelist is empty")
		return
	}

	bold := color.New(color.Bold)
	bold.Printf("%-44s %-10s %s\n", "ADDRESS", "MESSAGING", "NOTE")
	for _, row := range rows {
		messaging := "-"
		if row.Messaging {
			messaging = "yes"
		}
		fmt.Printf("%-44s %-10s %s\n", row.Address, messaging, row.Note)
	}
}

func runWhitelistAdd(_ *cobra.Command, args []string) {
	body := map[string]any{
		"address":   args[0],
		"messaging": contractMessaging,
		"note":      contractNote,
	}
	if err := callAdminAPI(http.MethodPost, "/v1/whitelist/contracts", body, nil); err != nil {
		fatal(err)
	}
	printSuccess(fmt.Sprintf("Whitelisted %s", args[0]))
}

func runWhitelistRemove(_ *cobra.Command, args []string) {
	path := "/v1/whitelist/contracts/" + args[0]
	if err := callAdminAPI(http.MethodDelete, path, nil, nil); err != nil {
		fatal(err)
	}
	printSuccess(fmt.Sprintf("Removed %s", args[0]))
}

func runWhitelistAddMethod(_ *cobra.Command, args []string) {
	path := "/v1/whitelist/contracts/" + args[0] + "/methods"
	body := map[string]any{"selector": args[1]}
	if err := callAdminAPI(http.MethodPost, path, body, nil); err != nil {
		fatal(err)
	}
	printSuccess(fmt.Sprintf("Whitelisted %s on %s", args[1], args[0]))
}

func runWhitelistRemoveMethod(_ *cobra.Command, args []string) {
	path := "/v1/whitelist/contracts/" + args[0] + "/methods/" + args[1]
	if err := callAdminAPI(http.MethodDelete, path, nil, nil); err != nil {
		fatal(err)
	}
	printSuccess(fmt.Sprintf("Removed %s from %s", args[1], args[0]))
}

// callAdminAPI performs one authenticated request against the settler and
// decodes the JSON response into out when out is non-nil.
func callAdminAPI(method, path string, body any, out any) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Calling settler..."
	s.Start()
	defer s.Stop()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, apiURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("settler returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("settler returned %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
