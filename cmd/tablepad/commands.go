package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nao1215/tablepad"
	"github.com/nao1215/tablepad/domain/model"
	"github.com/nao1215/tablepad/internal/web"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload, query and export HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := web.NewServer(a.workbench(), web.Options{
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
				ReadTimeout:    a.cfg.Server.ReadTimeout,
				Logger:         a.logger,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(a.cfg.Server.Addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Clear the store and materialize a file into a table",
		Long: `Upload clears the store and creates a table from a .csv, .jsonl or
.parquet file. The table is named after the text before the first '.'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// rejected names never touch the file system
			if _, err := tablepad.Classify(args[0]); err != nil {
				return err
			}
			data, err := tablepad.LoadFile(args[0])
			if err != nil {
				return err
			}
			result, err := a.workbench().Upload(cmd.Context(), filepath.Base(args[0]), bytes.NewReader(data))
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(a.out, "table %s (%s): %s\n", result.TableName, result.Format, result.Outcome)
			return nil
		},
	}
}

func (a *app) newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [sql]",
		Short: "Run SQL against the store and print the result",
		Long:  `Query runs SQL against the store. Without SQL it lists the tables.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := a.workbench().RunQuery(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return userError(err)
			}
			return printResult(a.out, rs)
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		format      string
		compression string
		out         string
	)
	cmd := &cobra.Command{
		Use:   "export [sql]",
		Short: "Run SQL and write the result to a file",
		Long: `Export runs SQL and writes the result as CSV, JSON lines, Parquet or XLSX.
The file name defaults to output.<ext> plus the compression extension.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := model.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			comp, err := model.ParseCompression(compression)
			if err != nil {
				return err
			}

			wb := a.workbench()
			artifact, err := wb.Export(cmd.Context(), strings.Join(args, " "), target, tablepad.NewExportOptions().WithCompression(comp))
			if err != nil {
				return userError(err)
			}
			blob, err := wb.Artifacts().Get(artifact.ID)
			if err != nil {
				return err
			}
			defer func() { _ = wb.Artifacts().Revoke(artifact.ID) }()

			if out == "" {
				out = artifact.SuggestedFileName
			}
			if err := os.WriteFile(out, blob.Data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(a.out, "wrote %s (%d bytes, %s)\n", out, artifact.Size, artifact.ContentType)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv, json, parquet, xlsx)")
	cmd.Flags().StringVarP(&compression, "compression", "c", "", "compression (gzip, zstd, xz)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: suggested file name)")
	return cmd
}

func (a *app) newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the store file and its write-ahead log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.workbench().ClearStorage(cmd.Context()); err != nil {
				return userError(err)
			}
			fmt.Fprintf(a.out, "cleared %s\n", a.cfg.Store.Path)
			return nil
		},
	}
}

// userError keeps rejection messages and replaces other failures with a
// generic message. The detail is in the log.
func userError(err error) error {
	if tablepad.IsInputRejected(err) {
		return err
	}
	if errors.Is(err, tablepad.ErrActionFailed) {
		return tablepad.ErrActionFailed
	}
	return err
}

// printResult writes rs as an aligned table.
func printResult(w io.Writer, rs *tablepad.ResultSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(rs.Columns) > 0 {
		fmt.Fprintln(tw, strings.Join(rs.Columns, "\t"))
	}
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", rs.Len())
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(val))
	default:
		return fmt.Sprint(val)
	}
}
