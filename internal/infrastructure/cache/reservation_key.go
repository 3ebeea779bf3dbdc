package cache

import (
	"fmt"

	"github.com/erp/payables/internal/domain/payables"
)

// reservationKey identifies one check number of one bank of one company
func reservationKey(prefix string, r payables.CheckNumberRange, number string) string {
	return fmt.Sprintf("%s%s:%d:%s", prefix, r.CompanyID, r.BankNumber, number)
}
