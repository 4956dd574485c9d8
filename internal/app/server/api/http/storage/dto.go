package storage

type uploadInput struct {
	Body struct {
		Bucket      string `json:"bucket" enum:"emergency-photos,signatures,checklist-photos" doc:"Target bucket"`
		Path        string `json:"path" minLength:"1" maxLength:"512" example:"visit-1/elevator-1/before_1.jpg"`
		ContentType string `json:"content_type" example:"image/jpeg"`
		Data        []byte `json:"data" doc:"Base64-encoded object content"`
	}
}

type uploadResponse struct {
	URL string `json:"url" doc:"Public URL of the stored object"`
}

type uploadOutput struct {
	Body uploadResponse
}
