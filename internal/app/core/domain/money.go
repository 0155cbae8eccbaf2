package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// 金額使用 int64，並定義精度：小數點後 2 位 (minor units)
// 避免 float64 在多次轉帳後產生累積誤差
const AmountScale = 100

// Amount 金額 (minor units)
// 例如 1000.00 儲存為 100000
type Amount int64

// ParseAmount 解析十進位金額字串 (最多兩位小數)
//
// 參數:
//
//	raw: 金額字串，如 "300"、"300.5"、"1000.00"
//
// 回傳:
//
//	Amount: 解析後的金額 (minor units)
//	error: 格式錯誤或超出 int64 範圍
//
// 注意: 不經過 float64，直接用整數運算組出 minor units
func ParseAmount(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	// 去掉正負號後必須以數字或小數點開頭
	if s == "" || (s[0] != '.' && !isDigits(s[:1])) {
		return 0, fmt.Errorf("malformed amount %q", raw)
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("malformed amount %q", raw)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) {
		return 0, fmt.Errorf("malformed amount %q", raw)
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q", raw)
	}

	var cents int64
	if hasFrac {
		if len(fracPart) == 0 || len(fracPart) > 2 {
			return 0, fmt.Errorf("amount %q must have at most 2 fractional digits", raw)
		}
		if !isDigits(fracPart) {
			return 0, fmt.Errorf("malformed amount %q", raw)
		}
		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed amount %q", raw)
		}
		// "5" 代表 0.50，"05" 代表 0.05
		if len(fracPart) == 1 {
			frac *= 10
		}
		cents = frac
	}

	// overflow 檢查
	if whole > (1<<63-1)/AmountScale {
		return 0, fmt.Errorf("amount %q out of range", raw)
	}
	total := whole*AmountScale + cents
	if total < 0 {
		return 0, fmt.Errorf("amount %q out of range", raw)
	}

	if negative {
		total = -total
	}
	return Amount(total), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// String 輸出兩位小數的十進位表示，如 "700.00"
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/AmountScale, v%AmountScale)
}

// MarshalJSON 以 JSON number 輸出 (不加引號)，精度固定兩位小數
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON 接受 JSON number 或字串
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
