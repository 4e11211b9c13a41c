package payment

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/magabrotheeeer/music-premium/internal/models"
	"github.com/magabrotheeeer/music-premium/internal/paymentprovider"
)

// codePattern код транзакции: SP, буква тарифа (M или Y) и суффикс.
// Суффикс может содержать дефисы из ID пользователя.
var codePattern = regexp.MustCompile(`SP[MY][A-Z0-9-]+`)

// NormalizeDescription приводит назначение перевода к верхнему регистру
// и удаляет всё, кроме латинских букв, цифр и дефиса.
func NormalizeDescription(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractCode находит код транзакции в нормализованном назначении.
func ExtractCode(normalized string) (string, bool) {
	code := codePattern.FindString(normalized)
	return code, code != ""
}

// MatchIntent подбирает pending-намерение по назначению перевода.
//
// Порядок: точное совпадение кода; код намерения содержит извлечённый
// токен; нормализованное назначение содержит код намерения.
// Банки часто искажают назначение, поэтому нужны все три уровня.
// Возвращает nil, если код не извлечён или ничего не подошло.
func MatchIntent(description string, pending []*models.Payment) *models.Payment {
	normalized := NormalizeDescription(description)
	token, ok := ExtractCode(normalized)
	if !ok {
		return nil
	}

	for _, p := range pending {
		if strings.ToUpper(p.TransactionCode) == token {
			return p
		}
	}
	for _, p := range pending {
		if strings.Contains(strings.ToUpper(p.TransactionCode), token) {
			return p
		}
	}
	for _, p := range pending {
		code := strings.ToUpper(p.TransactionCode)
		if code != "" && strings.Contains(normalized, code) {
			return p
		}
	}
	return nil
}

// MatchTransaction ищет в списке шлюза входящий перевод, в назначении которого
// есть код транзакции, на сумму не меньше amount.
func MatchTransaction(code string, amount int64, txs []paymentprovider.Transaction) *paymentprovider.Transaction {
	code = strings.ToUpper(code)
	if code == "" {
		return nil
	}
	for i := range txs {
		tx := &txs[i]
		if !tx.IsInbound() {
			continue
		}
		content := strings.Map(func(r rune) rune {
			if r == '-' || unicode.IsSpace(r) {
				return -1
			}
			return r
		}, strings.ToUpper(tx.TransactionContent))
		if strings.Contains(content, code) && tx.AmountInValue() >= float64(amount) {
			return tx
		}
	}
	return nil
}
