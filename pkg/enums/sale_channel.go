package enums

import "fmt"

// SaleChannel marks where an item is offered for sale.
type SaleChannel string

const (
	SaleChannelStore  SaleChannel = "store"
	SaleChannelOnline SaleChannel = "online"
	SaleChannelBoth   SaleChannel = "both"
)

var validSaleChannels = []SaleChannel{
	SaleChannelStore,
	SaleChannelOnline,
	SaleChannelBoth,
}

// String implements fmt.Stringer.
func (s SaleChannel) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleChannel.
func (s SaleChannel) IsValid() bool {
	for _, candidate := range validSaleChannels {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleChannel converts raw input into a SaleChannel.
func ParseSaleChannel(value string) (SaleChannel, error) {
	for _, candidate := range validSaleChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale channel %q", value)
}
