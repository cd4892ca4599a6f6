package api

import "time"

// MediaKind distinguishes the artifact classes the blob store accepts.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Spot is a single surf break within a region.
type Spot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Region  string `json:"region"`
}

// Report is a user-submitted condition report for a spot.
type Report struct {
	ID          string    `json:"id"`
	SpotID      string    `json:"spot_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	ImageKey    string    `json:"image_key,omitempty"`
	VideoKey    string    `json:"video_key,omitempty"`
	ThumbKey    string    `json:"video_thumbnail_key,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// BuoyReading is one telemetry sample from an offshore station.
type BuoyReading struct {
	StationName  string    `json:"station_name"`
	WaveHeightM  float64   `json:"wave_height_m"`
	PeriodSec    float64   `json:"period_sec"`
	DirectionDeg float64   `json:"direction_deg"`
	WaterTempC   float64   `json:"water_temp_c"`
	ReadAt       time.Time `json:"read_at"`
}

// UploadTarget is a minted presigned destination for one artifact.
// The URL accepts exactly one PUT of the raw bytes before ExpiresAt.
type UploadTarget struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *apiError) Error() string {
	return e.Message
}
