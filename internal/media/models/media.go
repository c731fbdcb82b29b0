package models

import "time"

type Status string

const (
	PendingStatus    Status = "pending"
	ProcessingStatus Status = "processing"
	SuccessStatus    Status = "success"
	FailedStatus     Status = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == SuccessStatus || s == FailedStatus
}

type MediaType string

const (
	Image MediaType = "image"
	Video MediaType = "video"
	HLS   MediaType = "hls"
)

// VideoStatus is the durable record of one transcoding job, keyed by the
// job id derived from the uploaded file name.
type VideoStatus struct {
	ID        string    `db:"id" json:"id" bson:"name"`
	Status    Status    `db:"status" json:"status" bson:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// Media is what an upload hands back to the client.
type Media struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}
