package dto

// AssetUploadDTO requests a presigned PUT URL for an image upload
type AssetUploadDTO struct {
	Filename string `json:"filename" validate:"required"`
}

// AssetUploadResponseDTO returns the object key and the URL to PUT to
type AssetUploadResponseDTO struct {
	ObjectKey string `json:"object_key"`
	UploadURL string `json:"upload_url"`
}
