package payment

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/music-premium/internal/models"
)

func TestGenerateTransactionCode(t *testing.T) {
	now := time.UnixMilli(1714557600000)
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	tests := []struct {
		name   string
		userID string
		plan   models.PlanID
		want   string
	}{
		{name: "monthly uuid", userID: "a1b2c3d4-e5f6-7890-abcd-ef0123456789", plan: models.PlanMonthly, want: "SPMA1B2C3D4" + ts},
		{name: "yearly hyphen early", userID: "ab-cd-ef-gh-ij", plan: models.PlanYearly, want: "SPYABCDEFGH" + ts},
		{name: "short user id", userID: "u1", plan: models.PlanYearly, want: "SPYU1" + ts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := GenerateTransactionCode(tt.userID, tt.plan, now)
			assert.Equal(t, tt.want, code)
			assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]+$`), code)

			token, ok := ExtractCode(NormalizeDescription(TransferDescription(code)))
			assert.True(t, ok)
			assert.Equal(t, code, token)
		})
	}
}
