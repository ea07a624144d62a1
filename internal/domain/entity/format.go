package entity

import (
	"strconv"
)

// ShortenAddress renders an address as its first six and last four
// characters, the usual display form for hex addresses.
func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// FormatEth renders an ETH amount with precision shrinking as magnitude
// grows: whole numbers from 1000, one decimal from 100, two below.
func FormatEth(amount float64) string {
	switch {
	case amount >= 1000:
		return strconv.FormatFloat(amount, 'f', 0, 64) + " ETH"
	case amount >= 100:
		return strconv.FormatFloat(amount, 'f', 1, 64) + " ETH"
	default:
		return strconv.FormatFloat(amount, 'f', 2, 64) + " ETH"
	}
}
