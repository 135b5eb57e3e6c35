package cache

// Cache names used in metrics labels and invalidation tasks.
const (
	NameCatalog  = "catalog"
	NameDelivery = "delivery"
	NameQuote    = "quote"
)

const (
	productPrefix = "apotek:product:"
	quotePrefix   = "apotek:quote:"

	// KeyActiveDeliveryRules holds the active ruleset in resolution order.
	KeyActiveDeliveryRules = "apotek:delivery:active"
)

// KeyProduct returns the key caching a product's pricing profile.
func KeyProduct(id string) string {
	return productPrefix + id
}

// KeyQuote returns the key caching a quote for a hash of its inputs.
func KeyQuote(inputHash string) string {
	return quotePrefix + inputHash
}

// PrefixFor returns the key prefix dropped when a named cache is invalidated.
func PrefixFor(name string) string {
	switch name {
	case NameCatalog:
		return productPrefix
	case NameQuote:
		return quotePrefix
	case NameDelivery:
		return KeyActiveDeliveryRules
	default:
		return ""
	}
}
