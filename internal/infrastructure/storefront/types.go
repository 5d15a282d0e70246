package storefront

// productStock is the subset of a storefront product (or variation) the
// client reads and writes
type productStock struct {
	ID            int64  `json:"id"`
	ManageStock   bool   `json:"manage_stock"`
	StockQuantity *int64 `json:"stock_quantity"`
}

// stockUpdate is the PUT body; stock_quantity is always absolute
type stockUpdate struct {
	ManageStock   bool  `json:"manage_stock"`
	StockQuantity int64 `json:"stock_quantity"`
}

// apiError is the error envelope returned by the storefront
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
