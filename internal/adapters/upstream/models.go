package upstream

// Wire shapes for the IoT API. Field names follow the upstream JSON exactly;
// normalization into core sample form happens in client.go and nowhere else.

// wireSample is one reading as the paginated endpoint returns it
type wireSample struct {
	PointName   string  `json:"point_name"`
	TimestampMS int64   `json:"timestamp_ms"`
	Value       float64 `json:"value"`
}

// paginatedResponse is the body of /timeseries/paginated
type paginatedResponse struct {
	Data       []wireSample `json:"data"`
	NextCursor string       `json:"next_cursor"`
}

// ConfiguredPoint is one entry of the point inventory. Name is the canonical
// key used everywhere; display fields are passthrough for operators.
type ConfiguredPoint struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name,omitempty"`
	Unit        string            `json:"unit,omitempty"`
	KVTags      map[string]string `json:"kv_tags,omitempty"`
}

// configuredPointsResponse is the body of /configured_points
type configuredPointsResponse struct {
	Items []ConfiguredPoint `json:"items"`
}
