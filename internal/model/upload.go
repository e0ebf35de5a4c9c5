package model

import "time"

// UploadProgress 分块上传进度（存于 Redis，不建表）
type UploadProgress struct {
	TotalChunks    int          `json:"totalChunks"`
	UploadedChunks int          `json:"uploadedChunks"`
	FileSize       int64        `json:"fileSize"`
	Identifier     string       `json:"identifier"`
	Filename       string       `json:"filename"`
	CreatedAt      time.Time    `json:"createdAt"`
	Chunks         map[int]bool `json:"chunks"`
}
