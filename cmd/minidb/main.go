// Command minidb is the REPL driver for the embeddable database: it reads
// lines from stdin, feeds CREATE TABLE/SELECT statements to the engine,
// and prints results as a text table. Formatting, colorization, and exit
// handling here are external collaborators, not part of the engine's core
// contract (see internal/engine).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"minidb/internal/engine"
	"minidb/pkg/types"
)

const banner = `
 __  __ _       _ ____  ____
|  \/  (_)_ __ (_)  _ \| __ )
| |\/| | | '_ \| | | | |  _ \
| |  | | | | | | | |_| | |_) |
|_|  |_|_|_| |_|_|____/|____/

An embeddable heap-file relational store.
Type 'help' for available commands, 'exit' to quit.
`

// CLI is the top-level flag set. There is no --buffer flag: the buffer
// pool in internal/storage is unbounded and never evicts (spec.md §4.2).
var CLI struct {
	Data  string `help:"Data directory for table heap files." default:"./minidb-data"`
	Query string `help:"Run a single SELECT statement and exit instead of starting the REPL." short:"q"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("minidb"),
		kong.Description("An embeddable, page-structured relational store."),
		kong.UsageOnError(),
	)

	db, err := engine.New(engine.Config{DataDir: CLI.Data})
	if err != nil {
		fmt.Fprintf(os.Stderr, "minidb: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if CLI.Query != "" {
		runQuery(db, CLI.Query)
		return
	}

	fmt.Print(banner)
	fmt.Printf("Data directory: %s\n\n", CLI.Data)
	repl(db)
}

func repl(db *engine.Engine) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("minidb> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case lower == "exit" || lower == "quit" || lower == ":q":
			fmt.Println("Goodbye!")
			return
		case lower == "help" || lower == ":h":
			printHelp()
			continue
		case lower == "tables" || lower == ":dt":
			printTables(db)
			continue
		case strings.HasPrefix(lower, "insert into "):
			if err := runInsert(db, line); err != nil {
				fmt.Printf("ERROR: %v\n", err)
			} else {
				fmt.Println("INSERT 1")
			}
			continue
		}

		stmt := strings.TrimSuffix(line, ";")
		upper := strings.ToUpper(strings.TrimSpace(stmt))
		switch {
		case strings.HasPrefix(upper, "CREATE TABLE"):
			if err := db.CreateTable(stmt); err != nil {
				fmt.Printf("ERROR: %v\n", err)
				continue
			}
			fmt.Println("CREATE TABLE")
		case strings.HasPrefix(upper, "SELECT"):
			runQuery(db, stmt)
		default:
			fmt.Println("ERROR: only CREATE TABLE, SELECT, and INSERT INTO ... VALUES are supported")
		}
	}
}

func runQuery(db *engine.Engine, query string) {
	schema, rows, err := db.ExecuteQuery(query)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return
	}
	printRows(schema, rows)
}

// runInsert implements the REPL's `INSERT INTO <table> VALUES (v1, v2, ...)`
// convenience syntax. There is no SQL INSERT in the core (spec.md §1: "no
// INSERT ... VALUES SQL; only a programmatic insert_row"); this helper
// parses the value list itself and calls Engine.InsertRow directly, the
// same entry point a Go caller would use.
func runInsert(db *engine.Engine, line string) error {
	rest := line[len("insert into "):]
	parenIdx := strings.Index(rest, "(")
	if parenIdx < 0 {
		return fmt.Errorf("expected INSERT INTO <table> VALUES (v1, v2, ...)")
	}
	head := strings.TrimSpace(rest[:parenIdx])
	fields := strings.Fields(head)
	if len(fields) == 0 || strings.ToLower(fields[len(fields)-1]) != "values" {
		return fmt.Errorf("expected INSERT INTO <table> VALUES (v1, v2, ...)")
	}
	table := strings.Join(fields[:len(fields)-1], " ")

	valuesPart := strings.TrimSpace(rest[parenIdx:])
	valuesPart = strings.TrimSuffix(valuesPart, ";")
	if !strings.HasPrefix(valuesPart, "(") || !strings.HasSuffix(valuesPart, ")") {
		return fmt.Errorf("expected a parenthesized value list")
	}
	valueStrs := splitValues(valuesPart[1 : len(valuesPart)-1])

	values := make([]types.Value, len(valueStrs))
	for i, f := range valueStrs {
		values[i] = parseLiteral(strings.TrimSpace(f))
	}
	return db.InsertRow(table, types.Row{Values: values})
}

// splitValues splits a comma-separated value list, respecting single-quoted
// strings so a literal containing a comma is not split.
func splitValues(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func parseLiteral(s string) types.Value {
	switch strings.ToUpper(s) {
	case "NULL":
		return types.NullValue(types.Text)
	case "TRUE":
		return types.NewBool(true)
	case "FALSE":
		return types.NewBool(false)
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return types.NewText(s[1 : len(s)-1])
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return types.NewInt(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return types.NewFloat(f)
	}
	return types.NewText(s)
}

func printHelp() {
	fmt.Print(`
Commands:
  help, :h          Show this help message
  tables, :dt       List all tables
  exit, quit, :q    Exit

SQL statements:
  CREATE TABLE name (col1 TYPE [constraints], col2 TYPE [constraints], ...)
    Types: INT/INTEGER, FLOAT, VARCHAR(n), TEXT/STRING, BOOL/BOOLEAN
  INSERT INTO table VALUES (v1, v2, ...)
  SELECT <target list> FROM table [WHERE <expr>]

Examples:
  CREATE TABLE users (id INT NOT NULL, name VARCHAR(255) NOT NULL, age INT, is_active BOOL)
  INSERT INTO users VALUES (1, 'Alice', 30, NULL)
  SELECT id, name FROM users WHERE age > 25
`)
}

func printTables(db *engine.Engine) {
	names := db.TableNames()
	if len(names) == 0 {
		fmt.Println("No tables found.")
		return
	}
	fmt.Println("\nTables:")
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println()
}

func printRows(schema *types.Schema, rows []types.Row) {
	colNames := make([]string, len(schema.Columns))
	widths := make([]int, len(schema.Columns))
	for i, c := range schema.Columns {
		colNames[i] = c.Name
		widths[i] = len(c.Name)
	}
	formatted := make([][]string, len(rows))
	for r, row := range rows {
		formatted[r] = make([]string, len(row.Values))
		for i, v := range row.Values {
			s := v.String()
			formatted[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printSeparator(widths)
	printRow(colNames, widths)
	printSeparator(widths)
	for _, row := range formatted {
		printRow(row, widths)
	}
	printSeparator(widths)
	fmt.Printf("(%d row(s))\n\n", len(rows))
}

func printRow(values []string, widths []int) {
	fmt.Print("|")
	for i, v := range values {
		fmt.Printf(" %-*s |", widths[i], v)
	}
	fmt.Println()
}

func printSeparator(widths []int) {
	fmt.Print("+")
	for _, w := range widths {
		fmt.Print(strings.Repeat("-", w+2) + "+")
	}
	fmt.Println()
}
