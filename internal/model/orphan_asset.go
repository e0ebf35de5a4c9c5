package model

import "time"

type OrphanKind string

const (
	OrphanVideoAsset OrphanKind = "video_asset"
	OrphanFile       OrphanKind = "file"
)

type OrphanStatus string

const (
	OrphanStatusPending OrphanStatus = "pending"
	OrphanStatusDeleted OrphanStatus = "deleted"
	OrphanStatusFailed  OrphanStatus = "failed"
)

// OrphanAsset 待清理的远端孤儿资产。内联清理失败的条目落到这张表，
// 由后台定时任务重试，避免进程崩溃丢失清理义务。
// swagger:model OrphanAsset
type OrphanAsset struct {
	BaseModel
	Kind         OrphanKind   `gorm:"size:20;not null" json:"kind"`
	RemoteID     string       `gorm:"size:256;index;not null" json:"remoteId"` // 视频资产ID或文件对象键
	ResourceKind string       `gorm:"size:50" json:"resourceKind"`             // 文件托管方的资源类别
	Status       OrphanStatus `gorm:"size:20;default:'pending';index" json:"status"`
	Attempts     int          `gorm:"default:0" json:"attempts"`
	LastError    string       `gorm:"size:512" json:"lastError,omitempty"`
	DeletedOkAt  *time.Time   `json:"deletedOkAt,omitempty"`
}

func (OrphanAsset) TableName() string {
	return "orphan_assets"
}
