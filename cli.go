package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"chatrelay/server/internal/protocol"
	"chatrelay/server/internal/settings"
	"chatrelay/server/internal/store"
)

// cliOut receives subcommand output. Tests swap it for a buffer.
var cliOut io.Writer = os.Stdout

// RunCLI handles subcommand execution. Returns true if a subcommand was handled.
func RunCLI(args []string, dbPath string) bool {
	if len(args) == 0 {
		return false
	}

	subcmd := args[0]
	switch subcmd {
	case "version":
		fmt.Fprintf(cliOut, "chatrelay server %s\n", Version)
		return true
	case "status":
		return cliStatus(dbPath)
	case "config":
		return cliConfig(args[1:], dbPath)
	case "audit":
		return cliAudit(args[1:], dbPath)
	case "backup":
		return cliBackup(args[1:], dbPath)
	default:
		return false
	}
}

func openStore(dbPath string) *store.Store {
	st, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	return st
}

func cliStatus(dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	cfg, err := settings.NewStore(st).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	n, _ := st.AuditLogCount()
	fmt.Fprintf(cliOut, "Database: %s\n", dbPath)
	fmt.Fprintf(cliOut, "Family friendly: %t\n", cfg.FamilyFriendly)
	fmt.Fprintf(cliOut, "Filtered terms: %d\n", len(cfg.FilteredTerms))
	fmt.Fprintf(cliOut, "Audit entries: %d\n", n)
	fmt.Fprintf(cliOut, "Version: %s\n", Version)
	return true
}

func cliConfig(args []string, dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()
	cs := settings.NewStore(st)

	cfg, err := cs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if len(args) == 0 || args[0] == "show" {
		out, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Fprintln(cliOut, string(out))
		return true
	}
	if args[0] == "raw" {
		return cliConfigRaw(st)
	}

	var patch protocol.ConfigPatch
	switch {
	case args[0] == "family-friendly" && len(args) > 1:
		on, err := strconv.ParseBool(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid boolean %q\n", args[1])
			os.Exit(1)
		}
		patch.FamilyFriendly = &on
	case args[0] == "terms":
		terms := []string{}
		if len(args) > 1 {
			terms = strings.Split(args[1], ",")
		}
		patch.FilteredTerms = &terms
	default:
		fmt.Fprintf(os.Stderr, "Usage: server config [show|raw|family-friendly <bool>|terms <a,b,c>]\n")
		os.Exit(1)
	}

	cfg = cfg.Apply(patch)
	if err := cs.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(cliOut, "Saved: familyFriendly=%t filteredTerms=%d\n", cfg.FamilyFriendly, len(cfg.FilteredTerms))
	return true
}

// cliConfigRaw prints every row of the settings table, sorted by key.
func cliConfigRaw(st *store.Store) bool {
	all, err := st.GetAllSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(all) == 0 {
		fmt.Fprintln(cliOut, "No settings stored.")
		return true
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cliOut, "%s = %s\n", k, all[k])
	}
	return true
}

func cliAudit(args []string, dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	action := ""
	limit := 50
	if len(args) > 0 {
		action = args[0]
		if action == "all" {
			action = ""
		}
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "invalid limit %q\n", args[1])
			os.Exit(1)
		}
		limit = n
	}

	entries, err := st.GetAuditLog(action, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cliOut, "No audit entries found.")
		return true
	}
	for _, e := range entries {
		fmt.Fprintf(cliOut, "  [%d] %d %s %s target=%q %s\n", e.ID, e.CreatedAt, e.ActorName, e.Action, e.Target, e.DetailsJSON)
	}
	return true
}

func cliBackup(args []string, dbPath string) bool {
	st := openStore(dbPath)
	defer st.Close()

	outPath := "chatrelay-backup.db"
	if len(args) > 0 {
		outPath = args[0]
	}

	if err := st.Backup(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(cliOut, "Database backed up to %s\n", outPath)
	return true
}
