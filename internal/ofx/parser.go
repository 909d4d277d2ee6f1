// Package ofx turns OFX/QFX bank and credit card statements into ledger lines.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/scribe/internal/model"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// SGML statements sometimes end an opening tag at the line break without '>'.
	unclosedTagPattern = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	leadingDatePattern = regexp.MustCompile(`^\d{2}/\d{2}\s+`)
)

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericNames = []string{
	"DEBIT",
	"CREDIT",
	"PURCHASE",
	"PAYMENT",
	"POS TRANSACTION",
	"CARD PURCHASE",
}

// Statement is the parsed content of one file.
type Statement struct {
	Accounts []string
	Expenses []model.Expense
}

// Parser reads OFX/QFX files.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads every bank and credit card statement in r. Debits become expenses and
// credits become income. Records are returned without identifiers.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (Statement, error) {
	if err := ctx.Err(); err != nil {
		return Statement{}, err
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return Statement{}, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return Statement{}, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var stmt Statement
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		bank, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		bankStmts++
		stmt.addAccount(string(bank.BankAcctFrom.AcctID))
		stmt.addTransactions(bank.BankTranList)
	}

	for _, msg := range resp.CreditCard {
		card, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		ccStmts++
		stmt.addAccount(string(card.CCAcctFrom.AcctID))
		stmt.addTransactions(card.BankTranList)
	}

	slog.Info("Parsed OFX file",
		"records", len(stmt.Expenses),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return stmt, nil
}

func (s *Statement) addAccount(id string) {
	if id != "" && !slices.Contains(s.Accounts, id) {
		s.Accounts = append(s.Accounts, id)
	}
}

func (s *Statement) addTransactions(list *ofxgo.TransactionList) {
	if list == nil {
		return
	}
	for _, tx := range list.Transactions {
		s.Expenses = append(s.Expenses, convertTransaction(tx))
	}
}

// preprocess repairs the formatting mistakes banks commonly make.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagPattern.ReplaceAllString(content, "$1>")
}

func convertTransaction(tx ofxgo.Transaction) model.Expense {
	amount, _ := tx.TrnAmt.Float64()
	trnType := tx.TrnType.String()

	expense := model.Expense{
		Date:     model.FormatDate(tx.DtPosted.Time),
		Item:     merchantName(tx),
		Amount:   math.Abs(amount),
		Type:     model.TypeExpense,
		Category: categoryFor(trnType),
	}
	if amount > 0 {
		expense.Type = model.TypeIncome
	}
	if expense.Item == "" && tx.CheckNum != "" {
		expense.Item = "Check #" + string(tx.CheckNum)
	}
	return expense
}

// categoryFor infers a category from the transaction type where it is unambiguous.
func categoryFor(trnType string) string {
	switch trnType {
	case "INT":
		return "Interest"
	case "DIV":
		return "Dividends"
	case "FEE", "SRVCHG":
		return "Bank Fees"
	case "ATM", "CASH":
		return "Cash & ATM"
	case "CHECK":
		return "Checks"
	}
	return ""
}

// merchantName picks the cleanest description the bank provided.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGeneric(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	return strings.TrimSpace(leadingDatePattern.ReplaceAllString(name, ""))
}

func isGeneric(name string) bool {
	return slices.Contains(genericNames, strings.ToUpper(name))
}
