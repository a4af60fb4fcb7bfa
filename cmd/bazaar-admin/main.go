// ABOUTME: Admin CLI for bazaar-gateway identity and marketplace management
// ABOUTME: Talks to the HTTP API with JWT authentication

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
)

const banner = `
  _
 | |__   __ _ ______ _  __ _ _ __ ___
 | '_ \ / _' |_  / _' |/ _' | '__/_ _\
 | |_) | (_| |/ / (_| | (_| | | |(_| |
 |_.__/ \__,_/___\__,_|\__,_|_|  \__,_| admin
`

// credentials is the on-disk TOML credentials file for the admin CLI
type credentials struct {
	Host  string `toml:"host"`
	Token string `toml:"token"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = cmdLogin(args)
	case "me":
		err = cmdMe()
	case "principals":
		err = cmdPrincipals(args)
	case "roles":
		err = cmdRoles(args)
	case "token":
		err = cmdToken(args)
	case "listings":
		err = cmdListings()
	case "events":
		err = cmdEvents()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: bazaar-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login --host HOST --token TOKEN   Save credentials")
	fmt.Println("  me                                Show your identity, roles, and balance")
	fmt.Println("  principals list [--status S]      List principals")
	fmt.Println("  principals approve <id>           Approve a pending principal")
	fmt.Println("  principals revoke <id>            Revoke a principal")
	fmt.Println("  roles grant <id> <role>           Grant a role (admin|creator|seller|buyer)")
	fmt.Println("  roles revoke <id> <role>          Revoke a role")
	fmt.Println("  token create <principal-id>       Issue an API token")
	fmt.Println("  listings                          Show everything on the market")
	fmt.Println("  events                            Show recent market events")
	fmt.Println()
	fmt.Println("Credentials: ~/.config/bazaar/admin.toml or BAZAAR_HOST/BAZAAR_TOKEN env vars")
}

// credentialsPath returns the CLI credentials file location
func credentialsPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "bazaar", "admin.toml")
}

// loadCredentials resolves host and token: env vars win over the TOML file
func loadCredentials() (*credentials, error) {
	creds := &credentials{}

	path := credentialsPath()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, creds); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if host := os.Getenv("BAZAAR_HOST"); host != "" {
		creds.Host = host
	}
	if token := os.Getenv("BAZAAR_TOKEN"); token != "" {
		creds.Token = token
	}

	if creds.Host == "" {
		creds.Host = "localhost:8080"
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("no token configured (run: bazaar-admin login --host HOST --token TOKEN)")
	}

	return creds, nil
}

func cmdLogin(args []string) error {
	creds := &credentials{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--host":
			if i+1 >= len(args) {
				return fmt.Errorf("--host requires a value")
			}
			creds.Host = args[i+1]
			i++
		case "--token":
			if i+1 >= len(args) {
				return fmt.Errorf("--token requires a value")
			}
			creds.Token = args[i+1]
			i++
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if creds.Host == "" || creds.Token == "" {
		return fmt.Errorf("--host and --token are required")
	}

	path := credentialsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	color.Green("Credentials saved to %s\n", path)
	return nil
}

// call performs an authenticated API request and decodes the JSON response into out
func call(method, path string, body any, out any) error {
	creds, err := loadCredentials()
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, "http://"+creds.Host+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func cmdMe() error {
	var me struct {
		PrincipalID string   `json:"principal_id"`
		Roles       []string `json:"roles"`
		Balance     int64    `json:"balance"`
	}
	if err := call(http.MethodGet, "/v1/me", nil, &me); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("Identity")
	fmt.Printf("  Principal: %s\n", me.PrincipalID)
	fmt.Printf("  Roles:     %v\n", me.Roles)
	fmt.Printf("  Balance:   %d\n", me.Balance)
	return nil
}

func cmdPrincipals(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: principals list|approve|revoke")
	}

	switch args[0] {
	case "list":
		path := "/v1/principals"
		if len(args) >= 3 && args[1] == "--status" {
			path += "?status=" + args[2]
		}

		var resp struct {
			Principals []struct {
				PrincipalID string   `json:"principal_id"`
				DisplayName string   `json:"display_name"`
				Status      string   `json:"status"`
				Roles       []string `json:"roles"`
			} `json:"principals"`
		}
		if err := call(http.MethodGet, path, nil, &resp); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tROLES")
		for _, p := range resp.Principals {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", p.PrincipalID, p.DisplayName, p.Status, p.Roles)
		}
		return w.Flush()

	case "approve", "revoke":
		if len(args) < 2 {
			return fmt.Errorf("usage: principals %s <id>", args[0])
		}
		if err := call(http.MethodPost, "/v1/principals/"+args[1]+"/"+args[0], struct{}{}, nil); err != nil {
			return err
		}
		color.Green("Principal %s %sd\n", args[1], args[0])
		return nil

	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func cmdRoles(args []string) error {
	if len(args) < 3 || (args[0] != "grant" && args[0] != "revoke") {
		return fmt.Errorf("usage: roles grant|revoke <principal-id> <role>")
	}

	body := map[string]string{
		"principal_id": args[1],
		"role":         args[2],
	}
	if err := call(http.MethodPost, "/v1/roles/"+args[0], body, nil); err != nil {
		return err
	}

	color.Green("Role %s %sed for %s\n", args[2], args[0], args[1])
	return nil
}

func cmdToken(args []string) error {
	if len(args) < 2 || args[0] != "create" {
		return fmt.Errorf("usage: token create <principal-id>")
	}

	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	body := map[string]string{"principal_id": args[1]}
	if err := call(http.MethodPost, "/v1/tokens", body, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Token)
	color.New(color.FgHiBlack).Printf("expires %s\n", resp.ExpiresAt)
	return nil
}

func cmdListings() error {
	var resp struct {
		Listings []struct {
			AssetID  int64  `json:"asset_id"`
			Owner    string `json:"owner"`
			TokenURI string `json:"token_uri"`
			Price    int64  `json:"price"`
			Seller   string `json:"seller"`
		} `json:"listings"`
	}
	if err := call(http.MethodGet, "/v1/listings", nil, &resp); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tPRICE\tSELLER\tURI")
	for _, l := range resp.Listings {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", l.AssetID, l.Price, l.Seller, truncate(l.TokenURI, 48))
	}
	return w.Flush()
}

func cmdEvents() error {
	var resp struct {
		Events []struct {
			Type      string `json:"Type"`
			Actor     string `json:"Actor"`
			AssetID   *int64 `json:"AssetID"`
			Amount    *int64 `json:"Amount"`
			Timestamp string `json:"Timestamp"`
		} `json:"events"`
	}
	if err := call(http.MethodGet, "/v1/events", nil, &resp); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tACTOR\tASSET\tAMOUNT")
	for _, e := range resp.Events {
		asset, amount := "-", "-"
		if e.AssetID != nil {
			asset = fmt.Sprintf("%d", *e.AssetID)
		}
		if e.Amount != nil {
			amount = fmt.Sprintf("%d", *e.Amount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp, e.Type, truncate(e.Actor, 12), asset, amount)
	}
	return w.Flush()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
