package instrument

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultSymbols is the built-in watch list used when no tickers file exists.
var DefaultSymbols = []string{"ILMN", "QQQ", "BTC-USD"}

// IsCryptoUSDPair reports whether a symbol names a crypto/USD pair such as
// "BTC-USD" or "eth-usd". Anything else is treated as an equity or ETF.
func IsCryptoUSDPair(symbol string) bool {
	s := strings.ToUpper(symbol)
	return strings.Contains(s, "-") && strings.HasSuffix(s, "-USD")
}

// Load reads a watch list from path, one symbol per line. Blank lines and
// lines starting with '#' are skipped. A missing file is not an error: the
// built-in default list is returned instead.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return append([]string(nil), DefaultSymbols...), nil
		}
		return nil, fmt.Errorf("open tickers file: %w", err)
	}
	defer f.Close()

	var symbols []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tickers file: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("tickers file %s has no symbols", path)
	}
	return symbols, nil
}
