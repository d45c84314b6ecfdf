// Package export turns a user's transaction list into a downloadable document
// and writes it to one or more sinks.
package export

import (
	"errors"
	"strings"

	"tracker/internal/core"
)

// ErrNothingToExport is returned when the list is empty.
var ErrNothingToExport = errors.New("no transactions to export")

// Header is the first row of every export.
var Header = []string{"Date", "Type", "Amount"}

// Document is a snapshot of a user's list taken at export time.
type Document struct {
	User         string
	Transactions []core.Transaction
}

// Build snapshots list for user. The list is copied so later mutations of the
// caller's slice do not leak into an export in progress.
func Build(list []core.Transaction, user string) (Document, error) {
	if len(list) == 0 {
		return Document{}, ErrNothingToExport
	}
	snapshot := make([]core.Transaction, len(list))
	copy(snapshot, list)
	return Document{User: user, Transactions: snapshot}, nil
}

// Rows returns the data rows in store order, without the header.
func (d Document) Rows() [][]string {
	rows := make([][]string, 0, len(d.Transactions))
	for _, tx := range d.Transactions {
		rows = append(rows, []string{tx.FormattedDate, string(tx.Type), tx.Amount.String()})
	}
	return rows
}

// CSV renders the header and rows joined by commas and newlines. Values are
// not quoted and there is no trailing newline.
func (d Document) CSV() []byte {
	lines := make([]string, 0, len(d.Transactions)+1)
	lines = append(lines, strings.Join(Header, ","))
	for _, row := range d.Rows() {
		lines = append(lines, strings.Join(row, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

// fileStem replaces path separators so a user name always stays a single
// file name inside the export directory.
var fileStem = strings.NewReplacer("/", "_", `\`, "_", "\x00", "_")

// Filename returns "<user>_expense_tracker.<ext>" with path separators in the
// user name replaced by underscores.
func (d Document) Filename(ext string) string {
	return fileStem.Replace(d.User) + "_expense_tracker." + ext
}
