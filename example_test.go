package tablepad_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/tablepad"
	"github.com/nao1215/tablepad/domain/model"
)

// ExampleWorkbench demonstrates the upload, query and export actions.
// Each action opens its own engine session against the store file and
// terminates it before returning.
func ExampleWorkbench() {
	tmpDir, err := os.MkdirTemp("", "tablepad_example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	storePath := filepath.Join(tmpDir, "tablepad.db")
	wb := tablepad.NewWorkbench(tablepad.NewStore(storePath), tablepad.NewSessionManager(storePath))
	ctx := context.Background()

	// The file name decides the table name and the reader
	csv := "region,amount\nnorth,120\nsouth,80\nnorth,30\n"
	uploaded, err := wb.Upload(ctx, "sales.csv", strings.NewReader(csv))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("table %s (%s): %s\n", uploaded.TableName, uploaded.Format, uploaded.Outcome)

	rs, err := wb.RunQuery(ctx, `
		SELECT region, SUM(amount) AS total
		FROM sales
		GROUP BY region
		ORDER BY region;`)
	if err != nil {
		log.Fatal(err)
	}
	for _, rec := range rs.Records() {
		fmt.Printf("%s: %d\n", rec["region"], rec["total"])
	}

	artifact, err := wb.Export(ctx, "SELECT region, amount FROM sales WHERE amount > 50", model.OutputFormatCSV, tablepad.NewExportOptions())
	if err != nil {
		log.Fatal(err)
	}
	blob, err := wb.Artifacts().Get(artifact.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(artifact.SuggestedFileName)
	fmt.Print(string(blob.Data))

	// Output:
	// table sales (csv): created
	// north: 150
	// south: 80
	// output.csv
	// region,amount
	// north,120
	// south,80
}

// ExampleClassify demonstrates how upload names map to tables.
func ExampleClassify() {
	for _, name := range []string{"sales.csv", "events.2024.jsonl", "report.xlsx", "README"} {
		classified, err := tablepad.Classify(name)
		if err != nil {
			fmt.Printf("%s: %v\n", name, err)
			continue
		}
		fmt.Printf("%s: table=%s format=%s\n", name, classified.TableName, classified.Format)
	}

	// Output:
	// sales.csv: table=sales format=csv
	// events.2024.jsonl: table=events format=jsonl
	// report.xlsx: tablepad: unrecognized file extension: report.xlsx
	// README: tablepad: file name has no extension: README
}

// ExampleSessionManager_Do demonstrates a scoped session: the connection is
// closed and the session terminated when the function returns.
func ExampleSessionManager_Do() {
	tmpDir, err := os.MkdirTemp("", "tablepad_session")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	sessions := tablepad.NewSessionManager(filepath.Join(tmpDir, "tablepad.db"))
	err = sessions.Do(context.Background(), func(ctx context.Context, _ *tablepad.Session, conn *tablepad.Connection) error {
		data := []byte("{\"id\":1,\"tags\":[\"a\"]}\n{\"id\":2,\"ok\":true}\n")
		if _, err := tablepad.Materialize(ctx, conn, data, "events", model.FormatJSONL); err != nil {
			return err
		}
		rs, err := tablepad.Execute(ctx, conn, "SELECT * FROM events ORDER BY id")
		if err != nil {
			return err
		}
		fmt.Println(rs.Columns)
		for _, row := range rs.Rows {
			fmt.Println(row...)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// [id tags ok]
	// 1 ["a"] <nil>
	// 2 <nil> 1
}
