package rest

import "github.com/xompass/vsaas-joins/joins"

type Count struct {
	Count int64 `json:"count"`
} // @name CountResponse

type Exists struct {
	Exists bool `json:"exists"`
} // @name ExistsResponse

// FollowResponse is the body returned when a join is followed. Data holds a
// document, a list of documents or null.
type FollowResponse struct {
	Model       string `json:"model"`
	ID          any    `json:"id"`
	Path        string `json:"path"`
	Cardinality string `json:"cardinality"`
	Count       int    `json:"count"`
	Data        any    `json:"data"`
} // @name FollowResponse

func newFollowResponse(source joins.Document, path string, result joins.Result) FollowResponse {
	cardinality := joins.Single
	if result.Multiple {
		cardinality = joins.Multiple
	}

	return FollowResponse{
		Model:       source.GetModelName(),
		ID:          source.GetId(),
		Path:        path,
		Cardinality: cardinality.String(),
		Count:       result.Len(),
		Data:        result.Value(),
	}
}
