package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"trackex/internal/models"
	"trackex/internal/money"
	"trackex/internal/storage"
)

const defaultDBPath = "trackex.db"

// columns are the header names a registry sheet must carry, in any order.
var columns = []string{"account_number", "holder_name", "bank_name", "branch_name", "ifsc_code", "unique_code", "balance"}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("loadaccounts", flag.ContinueOnError)
	fs.SetOutput(stderr)

	file := fs.String("file", "", "XLSX file with bank registry rows")
	sheet := fs.String("sheet", "", "Sheet name (defaults to the first sheet)")
	driver := fs.String("driver", "sqlite", "Database driver (sqlite or postgres)")
	dbPath := fs.String("db", defaultDBPath, "Database file path or DSN")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fmt.Fprintln(stdout, "Usage: loadaccounts -file <accounts.xlsx> [-sheet <name>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: file")
	}
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == defaultDBPath {
		*dbPath = path
	}

	accounts, err := readAccounts(*file, *sheet)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, *driver, *dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var inserted, skipped int
	for _, a := range accounts {
		ok, err := db.InsertBankAccount(ctx, a)
		if err != nil {
			return fmt.Errorf("account %s: %w", a.AccountNumber, err)
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Fprintf(stdout, "Loaded %d accounts, %d already present\n", inserted, skipped)
	return nil
}

// readAccounts parses the registry sheet. Blank rows are skipped; any other
// malformed row fails the whole file.
func readAccounts(path, sheet string) ([]*models.BankAccount, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	index := make(map[string]int, len(columns))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var out []*models.BankAccount
	for n, row := range rows[1:] {
		cell := func(name string) string {
			i := index[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if strings.Join(row, "") == "" {
			continue
		}

		line := n + 2
		a := &models.BankAccount{
			AccountNumber: cell("account_number"),
			HolderName:    cell("holder_name"),
			BankName:      cell("bank_name"),
			BranchName:    cell("branch_name"),
			IFSCCode:      cell("ifsc_code"),
			UniqueCode:    cell("unique_code"),
		}
		if a.AccountNumber == "" || a.IFSCCode == "" {
			return nil, fmt.Errorf("row %d: account_number and ifsc_code are required", line)
		}
		balance, err := money.Parse(cell("balance"))
		if err != nil || !money.IsNonNegative(balance) {
			return nil, fmt.Errorf("row %d: invalid balance %q", line, cell("balance"))
		}
		a.Balance = balance
		out = append(out, a)
	}
	return out, nil
}
