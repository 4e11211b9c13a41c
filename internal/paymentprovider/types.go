package paymentprovider

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TransferIn направление входящего перевода.
const TransferIn = "in"

// transactionDateLayout формат дат шлюза.
const transactionDateLayout = "2006-01-02 15:04:05"

// Notification тело webhook, которое шлюз присылает на каждую операцию по счёту.
type Notification struct {
	ID              int64   `json:"id"`
	Gateway         string  `json:"gateway"`
	TransactionDate string  `json:"transactionDate"`
	AccountNumber   string  `json:"accountNumber"`
	Code            *string `json:"code"`
	Content         string  `json:"content"`
	TransferType    string  `json:"transferType" validate:"required"`
	TransferAmount  float64 `json:"transferAmount"`
	Accumulated     float64 `json:"accumulated"`
	SubAccount      *string `json:"subAccount"`
	ReferenceCode   string  `json:"referenceCode"`
	Description     string  `json:"description"`
}

// Transaction операция из API списка транзакций. Суммы приходят строками.
type Transaction struct {
	ID                 string  `json:"id"`
	BankBrandName      string  `json:"bank_brand_name"`
	AccountNumber      string  `json:"account_number"`
	TransactionDate    string  `json:"transaction_date"`
	AmountOut          string  `json:"amount_out"`
	AmountIn           string  `json:"amount_in"`
	Accumulated        string  `json:"accumulated"`
	TransactionContent string  `json:"transaction_content"`
	ReferenceNumber    string  `json:"reference_number"`
	Code               *string `json:"code"`
	SubAccount         *string `json:"sub_account"`
	BankAccountID      string  `json:"bank_account_id"`
}

// ListTransactionsResponse ответ API списка транзакций.
type ListTransactionsResponse struct {
	Status   int     `json:"status"`
	Error    *string `json:"error"`
	Messages struct {
		Success bool `json:"success"`
	} `json:"messages"`
	Transactions []Transaction `json:"transactions"`
}

// IsInbound сообщает, что по операции не было списания.
func (t Transaction) IsInbound() bool {
	out, err := parseAmount(t.AmountOut)
	return err == nil && out == 0
}

// MinorUnits переводит сумму шлюза в целые единицы валюты.
// У VND нет дробной части, поэтому сумма округляется до ближайшего целого.
func MinorUnits(v float64) int64 {
	return int64(math.Round(v))
}

// AmountInValue возвращает сумму поступления. Некорректная строка даёт 0.
func (t Transaction) AmountInValue() float64 {
	v, err := parseAmount(t.AmountIn)
	if err != nil {
		return 0
	}
	return v
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// ParseTransactionDate разбирает дату шлюза в часовом поясе loc.
// При ошибке возвращается fallback.
func ParseTransactionDate(s string, loc *time.Location, fallback time.Time) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(transactionDateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return fallback
	}
	return t
}
