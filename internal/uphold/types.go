package uphold

import "strconv"

// Ticker represents a single pair quote from the ticker endpoints.
type Ticker struct {
	Pair     string `json:"pair"`
	Currency string `json:"currency"`
	Bid      string `json:"bid"`
	Ask      string `json:"ask"`
	Last     string `json:"last"`
}

// Account represents a single balance entry from the accounts endpoint.
type Account struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Status   string `json:"status"`
	Type     string `json:"type"`
}

// OrderRequest is the payload for placing a market order.
type OrderRequest struct {
	Denomination string `json:"denomination"`
	Amount       string `json:"amount"`
	Direction    string `json:"direction"`
}

// OrderResponse represents the response from creating a new order.
type OrderResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Denomination string `json:"denomination"`
	Amount       string `json:"amount"`
	Direction    string `json:"direction"`
	CreatedAt    string `json:"createdAt"`
}

// Holdings converts account entries into a balance map keyed by currency.
// Accounts with a zero or unparseable balance are skipped.
func Holdings(accounts []Account) map[string]float64 {
	holdings := make(map[string]float64, len(accounts))
	for _, a := range accounts {
		balance, err := strconv.ParseFloat(a.Balance, 64)
		if err != nil || balance <= 0 {
			continue
		}
		holdings[a.Currency] = balance
	}
	return holdings
}
