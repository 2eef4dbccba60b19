package cli

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	"github.com/lablabs/storefront-client/internal/ast"
	"github.com/lablabs/storefront-client/internal/client"
	"github.com/lablabs/storefront-client/internal/query"
	"github.com/lablabs/storefront-client/internal/routes"
)

// loadRequest reads the document argument and the --vars/--vars-file flags.
func loadRequest(cmd *cobra.Command, path string) (*ast.Document, map[string]interface{}, error) {
	doc, err := ast.Load(path)
	if err != nil {
		return nil, nil, err
	}

	vars := map[string]interface{}{}
	raw, _ := cmd.Flags().GetString("vars")
	if file, _ := cmd.Flags().GetString("vars-file"); file != "" {
		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, err
		}
		raw = string(buf)
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &vars); err != nil {
			return nil, nil, fmt.Errorf("invalid variables: %w", err)
		}
	}
	return doc, vars, nil
}

func addVariableFlags(cmd *cobra.Command) {
	cmd.Flags().String("vars", "", "variables as a JSON object")
	cmd.Flags().String("vars-file", "", "file holding the variables JSON object")
}

func newQueryCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "query <document>",
		Short: "send a document to the storefront and print the data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, vars, err := loadRequest(cmd, args[0])
			if err != nil {
				return err
			}
			cl, err := routes.NewClient(nil)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if session, _ := cmd.Flags().GetString("session"); session != "" {
				sessions, err := routes.NewSessions(ctx, viper.GetString("session_backend"))
				if err != nil {
					return err
				}
				cl = cl.Session(sessions.Store(session))
			}

			req := client.Request{Document: doc, Variables: vars}
			req.DisableCache, _ = cmd.Flags().GetBool("no-cache")

			var data json.RawMessage
			if strict, _ := cmd.Flags().GetBool("strict"); strict {
				err = cl.Strict(ctx, req, &data)
			} else {
				data, err = cl.Query(ctx, req)
			}
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("select"); path != "" {
				res := gjson.GetBytes(data, path)
				if !res.Exists() {
					return fmt.Errorf("nothing at %q in response data", path)
				}
				data = json.RawMessage(res.Raw)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	addVariableFlags(cmd)
	cmd.Flags().String("session", "", "session id whose cache is used (shared across runs with the redis backend)")
	cmd.Flags().Bool("no-cache", false, "skip the session cache")
	cmd.Flags().Bool("strict", false, "fail when the response carries GraphQL errors")
	cmd.Flags().String("select", "", "print only this path of the data (gjson syntax)")
	return cmd
}

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build <document>",
		Short: "print the query string sent for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := ast.Load(args[0])
			if err != nil {
				return err
			}
			mode, err := query.ParseFragmentMode(viper.GetString("fragment_mode"))
			if err != nil {
				return err
			}
			q, err := query.Build(doc, query.WithFragmentMode(mode))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q)
			return nil
		},
	}
}

func newKeyCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "key <document>",
		Short: "print the session cache key of a document and its variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, vars, err := loadRequest(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.CacheKey(doc, vars))
			return nil
		},
	}
	addVariableFlags(cmd)
	return cmd
}
