package response

type ImportResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
