package payment

import (
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/music-premium/internal/models"
)

// codePrefix префикс продукта в коде транзакции.
const codePrefix = "SP"

// GenerateTransactionCode строит код для назначения перевода:
// SP + буква тарифа + первые 8 символов ID пользователя без дефисов + время в base36.
// Код состоит только из заглавных латинских букв и цифр.
func GenerateTransactionCode(userID string, planID models.PlanID, now time.Time) string {
	var b strings.Builder
	b.WriteString(codePrefix)
	if planID != "" {
		b.WriteString(strings.ToUpper(string(planID)[:1]))
	}
	short := strings.ToUpper(strings.ReplaceAll(userID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	b.WriteString(short)
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	return b.String()
}

// TransferDescription текст, который пользователь указывает в назначении перевода.
func TransferDescription(code string) string {
	return "Premium " + code
}
