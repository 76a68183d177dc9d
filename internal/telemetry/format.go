// Package telemetry transforma os valores do oráculo em textos e
// indicadores para o painel do passageiro.
package telemetry

import (
	"math"
	"strconv"
	"strings"

	"coaster_go/pkg/utils"
)

// DateLayout equivale a "dd MMM yy"
const DateLayout = "02 Jan 06"

var suffixes = [...]string{"", "K", "M", "B", "T"}

// maxExponent limita o sufixo em trilhões
const maxExponent = 14

// Abbreviate formata num com sufixo K/M/B/T e uma casa decimal.
// Abaixo de 1000 retorna o inteiro arredondado sem sufixo.
func Abbreviate(num float64) string {
	if num == 0 {
		return "0"
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return strconv.FormatFloat(num, 'f', -1, 64)
	}

	sign := ""
	if num < 0 {
		sign = "-"
	}
	abs := math.Abs(num)

	if whole := utils.ToFixed(abs, 0); len(whole) <= 3 {
		if whole == "0" {
			return "0"
		}
		return sign + whole
	}

	k := min(exponent(abs), maxExponent) / 3
	q := abs / math.Pow10(k*3)
	return sign + utils.FormatFloat(q, 1) + suffixes[k]
}

// exponent retorna o expoente decimal de x arredondado a 2 dígitos significativos
func exponent(x float64) int {
	s := strconv.FormatFloat(x, 'e', 1, 64)
	i := strings.IndexByte(s, 'e')
	exp, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return 0
	}
	return exp
}

// FormatDate formata segundos Unix como "05 Jan 24" (UTC)
func FormatDate(unixSeconds float64) string {
	return utils.FromUnixSeconds(unixSeconds).Format(DateLayout)
}

// Percentage retorna a parcela long em porcentagem, com 2 casas
func Percentage(ratio float64) float64 {
	v, err := strconv.ParseFloat(utils.ToFixed((ratio/2)*100, 2), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatPercentage formata a porcentagem como "58.33%"
func FormatPercentage(pct float64) string {
	return utils.ToFixed(pct, 2) + "%"
}
