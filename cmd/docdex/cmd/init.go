package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/configs"
	"github.com/docdex/docdex/internal/output"
)

// mcpServerEntry is one server in a client's .mcp.json.
type mcpServerEntry struct {
	Type    string   `json:"type,omitempty"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

type mcpFile struct {
	MCPServers map[string]mcpServerEntry `json:"mcpServers"`
}

func newInitCmd() *cobra.Command {
	var (
		force   bool
		withMCP bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold docdex configuration in a project",
		Long: `Write starter configuration files into the project directory:

  docdex.yaml   engine settings, fully commented
  docsets.toml  the docset registry

Existing files are left alone unless --force is given. With --mcp the
command also registers docdex as a stdio server in the project's
.mcp.json so MCP clients pick it up.`,
		Example: `  # Scaffold config in the current directory
  docdex init

  # Also register the MCP server in .mcp.json
  docdex init --mcp

  # Overwrite existing config files
  docdex init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force, withMCP)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration files")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Register docdex in the project's .mcp.json")
	return cmd
}

func runInit(cmd *cobra.Command, force, withMCP bool) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())

	files := []struct {
		name    string
		content string
	}{
		{"docdex.yaml", configs.ProjectConfigTemplate},
		{"docsets.toml", configs.RegistryTemplate},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil && !force {
			out.Warningf("%s already exists, skipping (use --force to overwrite)", f.name)
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		out.Successf("wrote %s", f.name)
	}

	if withMCP {
		if err := registerMCPServer(dir, out); err != nil {
			return err
		}
	}

	out.Newline()
	out.Status("", "Next steps:")
	out.Status("", "  1. Point docsets.toml at your documentation directories")
	out.Status("", "  2. Run: docdex reindex")
	out.Status("", "  3. Run: docdex search \"your first query\"")
	return nil
}

// registerMCPServer merges a docdex entry into .mcp.json, preserving
// any servers already registered there.
func registerMCPServer(dir string, out *output.Writer) error {
	path := filepath.Join(dir, ".mcp.json")

	cfg := mcpFile{MCPServers: map[string]mcpServerEntry{}}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("existing %s is not valid JSON: %w", path, err)
		}
		if cfg.MCPServers == nil {
			cfg.MCPServers = map[string]mcpServerEntry{}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.MCPServers["docdex"] = mcpServerEntry{
		Type:    "stdio",
		Command: "docdex",
		Args:    []string{"serve", "--dir", dir},
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	out.Successf("registered docdex in %s", filepath.Base(path))
	return nil
}
