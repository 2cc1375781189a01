package dto

// UploadFileResponse represents the stored file after an upload
type UploadFileResponse struct {
	Message string        `json:"message"`
	File    StoredFileDTO `json:"file"`
}
