// Package tablepad loads a tabular file (CSV, JSON lines or Parquet) into an
// embedded SQL engine, runs ad-hoc SQL against it and exports query results
// as CSV, JSON lines, Parquet or Excel.
//
// Every action runs in its own short-lived engine session bound to one store
// file. An upload clears the store first, so the store only ever holds the
// tables of the latest upload cycle.
//
// # Basic Usage
//
//	store := tablepad.NewStore("tablepad.db")
//	sessions := tablepad.NewSessionManager(store.Path())
//	wb := tablepad.NewWorkbench(store, sessions)
//
//	f, err := os.Open("sales.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	if _, err := wb.Upload(ctx, "sales.csv", f); err != nil {
//	    log.Fatal(err)
//	}
//
//	rs, err := wb.RunQuery(ctx, "SELECT SUM(amount) AS total FROM sales")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rs.Records())
//
//	artifact, err := wb.Export(ctx, "SELECT * FROM sales", model.OutputFormatParquet, tablepad.NewExportOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	blob, _ := wb.Artifacts().Get(artifact.ID)
//
// # Table Naming
//
// Table names are derived from the uploaded file name:
//   - "sales.csv" becomes table "sales"
//   - "a.b.csv" becomes table "a" (name before the first dot, extension after the last)
//   - "/path/to/logs.jsonl" becomes table "logs"
//
// Extensions are case-sensitive. Only .csv, .jsonl and .parquet are accepted.
//
// # Sessions
//
// Lower level building blocks are exported for callers that need them:
//
//	err := sessions.Do(ctx, func(ctx context.Context, s *tablepad.Session, c *tablepad.Connection) error {
//	    outcome, err := tablepad.Materialize(ctx, c, data, "sales", model.FormatCSV)
//	    ...
//	})
//
// Do closes the connection and terminates the session on every exit path.
//
// # Error Handling
//
// A rejected file name is reported with ErrNoExtension or
// ErrUnrecognizedExtension. Any other failure of a Workbench action is logged
// and reported as ErrActionFailed wrapping the cause (ErrRead, ErrStorage or
// ErrEngine).
package tablepad
