package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KimSoungRyoul/aerospike-py-sub001/cmd/util"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/batch"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/client"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/spf13/cobra"
)

var (
	batchClient *client.Client
	closeBatch  func()

	schemaFlag     string
	schemaFileFlag string

	// BatchCommands represents the batch command group
	BatchCommands = &cobra.Command{
		Use:                "batch",
		Short:              "Read and write records in fixed width row buffers",
		PersistentPreRunE:  setupBatchClient,
		PersistentPostRunE: closeBatchClient,
	}

	readCmd = &cobra.Command{
		Use:   "read [key]...",
		Short: "Reads records into rows described by a schema",
		Long: `Reads records into rows described by a schema. The schema is given inline
(--schema "age:u4,name:S8,vec:(8)f4") or as YAML file (--schema-file).`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRead,
	}

	writeCmd = &cobra.Command{
		Use:   "write [csv file]",
		Short: "Writes the rows of a CSV file",
		Long: `Writes the rows of a CSV file. The header names the schema fields, the _key
field is required. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runWrite,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupClientFlags(BatchCommands)

	BatchCommands.PersistentFlags().StringVar(&schemaFlag, "schema", "", util.WrapString("Inline schema, e.g. age:u4,name:S8"))
	BatchCommands.PersistentFlags().StringVar(&schemaFileFlag, "schema-file", "", util.WrapString("YAML file with the schema"))

	readCmd.Flags().String("bins", "", util.WrapString("Only read these bins (comma separated)"))
	readCmd.Flags().String("arrow", "", util.WrapString("Write the result as arrow IPC file to this path"))
	readCmd.Flags().Bool("stats", false, util.WrapString("Print statistics of the numeric fields"))

	BatchCommands.AddCommand(readCmd)
	BatchCommands.AddCommand(writeCmd)
}

func setupBatchClient(cmd *cobra.Command, _ []string) error {
	var err error
	batchClient, closeBatch, err = util.Connect(cmd)
	return err
}

func closeBatchClient(_ *cobra.Command, _ []string) error {
	if closeBatch != nil {
		closeBatch()
	}
	return nil
}

// loadSchema reads the schema from --schema or --schema-file
func loadSchema() (batch.Schema, error) {
	switch {
	case schemaFlag != "" && schemaFileFlag != "":
		return nil, fmt.Errorf("--schema and --schema-file are mutually exclusive")
	case schemaFlag != "":
		return batch.ParseSchema(schemaFlag)
	case schemaFileFlag != "":
		data, err := os.ReadFile(schemaFileFlag)
		if err != nil {
			return nil, err
		}
		return batch.LoadSchemaYAML(data)
	default:
		return nil, fmt.Errorf("a schema is required (--schema or --schema-file)")
	}
}

// --------------------------------------------------------------------------
// Read
// --------------------------------------------------------------------------

func runRead(cmd *cobra.Command, args []string) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	keys := make([]protocol.Key, len(args))
	for i, arg := range args {
		if keys[i], err = util.ParseKey(arg); err != nil {
			return err
		}
	}

	var bins []string
	if s, _ := cmd.Flags().GetString("bins"); s != "" {
		bins = strings.Split(s, ",")
	}

	res, err := batchClient.BatchRead(cmd.Context(), keys, schema, bins...)
	if err != nil {
		return err
	}
	if err := printResult(os.Stdout, res, args); err != nil {
		return err
	}

	if ok, _ := cmd.Flags().GetBool("stats"); ok {
		printStats(os.Stdout, res)
	}

	if path, _ := cmd.Flags().GetString("arrow"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := res.WriteArrow(f); err != nil {
			return err
		}
		fmt.Printf("\nwrote %d rows to %s\n", res.Len(), path)
	}
	return nil
}

// printResult prints one line per input key
func printResult(w io.Writer, res *batch.Result, names []string) error {
	fields := res.Layout().Fields()
	for i, name := range names {
		gen, ttl := res.RowMeta(i)
		fmt.Fprintf(w, "%-16s code=%-3d gen=%-4d ttl=%-10d", name, res.Codes[i], gen, ttl)
		for _, f := range fields {
			v, err := res.Value(i, f.Name)
			if err != nil {
				return err
			}
			if b, ok := v.([]byte); ok && f.Kind == batch.KindFixedBytes {
				v = string(b)
			}
			fmt.Fprintf(w, " %s=%v", f.Name, v)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printStats(w io.Writer, res *batch.Result) {
	fmt.Fprintln(w)
	for _, f := range res.Layout().Fields() {
		s, err := res.ColumnStats(f.Name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%-16s n=%d min=%g max=%g mean=%g std=%g\n", f.Name, s.Count, s.Min, s.Max, s.Mean, s.StdDeviation)
	}
}

// --------------------------------------------------------------------------
// Write
// --------------------------------------------------------------------------

func runWrite(cmd *cobra.Command, args []string) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	layout, err := batch.Compile(schema)
	if err != nil {
		return err
	}

	in := os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	rows, n, err := readRows(in, layout)
	if err != nil {
		return err
	}

	codes, err := batchClient.BatchWrite(cmd.Context(), rows, layout, protocol.WritePolicy{})
	if err != nil {
		return err
	}
	failed := 0
	for i, code := range codes {
		if code != protocol.ResultOK {
			failed++
			fmt.Printf("row %d: %s\n", i, code)
		}
	}
	fmt.Printf("wrote %d rows (%d failed)\n", n-failed, failed)
	return nil
}

// readRows fills a row buffer from CSV. The header row names the fields.
func readRows(r io.Reader, layout *batch.Layout) ([]byte, int, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("CSV has no header")
	}

	header, records := records[0], records[1:]
	for _, name := range header {
		if _, ok := layout.Field(name); !ok {
			return nil, 0, fmt.Errorf("CSV column %q is not in the schema", name)
		}
	}

	rows := layout.NewRows(len(records))
	for i, rec := range records {
		for j, raw := range rec {
			f, _ := layout.Field(header[j])
			value, err := util.ParseValue(raw, "")
			if err != nil {
				return nil, 0, err
			}
			if f.Kind == batch.KindFixedBytes || f.Kind == batch.KindRawBytes {
				value = raw
			}
			if err := layout.Put(rows, i, header[j], value); err != nil {
				return nil, 0, fmt.Errorf("row %d: %w", i+1, err)
			}
		}
	}
	return rows, len(records), nil
}
