package types

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Credits  int    `json:"credits"`
	PlanTier string `json:"plan_tier"`
}

type CreateVideoRequest struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	Topic                string `json:"topic"`
	Tone                 string `json:"tone"`
	Duration             string `json:"duration"`
	CallToAction         string `json:"call_to_action"`
	SpecificCallToAction string `json:"specific_call_to_action"`
	AvatarID             string `json:"avatar_id"`
	VoiceID              string `json:"voice_id"`
	LookID               string `json:"look_id,omitempty"`
	TemplateID           string `json:"template_id,omitempty"`
	Draft                bool   `json:"draft,omitempty"`
}

type VideoResponse struct {
	ID                 uint   `json:"id"`
	Title              string `json:"title"`
	Topic              string `json:"topic"`
	Duration           string `json:"duration"`
	Status             string `json:"status"`
	AvatarStatus       string `json:"avatar_status,omitempty"`
	AvatarVideoURL     string `json:"avatar_video_url,omitempty"`
	AvatarThumbnailURL string `json:"avatar_thumbnail_url,omitempty"`
	CompositeStatus    string `json:"composite_status,omitempty"`
	VideoURL           string `json:"video_url,omitempty"`
	ErrorMsg           string `json:"error_msg,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type VideoListResponse struct {
	Videos   []VideoResponse `json:"videos"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type ContentResponse struct {
	VideoID   uint   `json:"video_id"`
	Script    string `json:"script,omitempty"`
	ShortCopy Copy   `json:"short_copy"`
	LongCopy  Copy   `json:"long_copy"`
}

type Copy struct {
	Platform string `json:"platform,omitempty"`
	Content  string `json:"content,omitempty"`
}

type VideoIDRequest struct {
	VideoID uint `json:"video_id"`
}

type GenerateScriptResponse struct {
	VideoID uint   `json:"video_id"`
	Script  string `json:"script"`
}

type GenerateCopiesResponse struct {
	VideoID   uint     `json:"video_id"`
	ShortCopy string   `json:"short_copy,omitempty"`
	LongCopy  string   `json:"long_copy,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

type PublishRequest struct {
	VideoID uint   `json:"video_id"`
	Caption string `json:"caption"`
}

type PublishResponse struct {
	ID         string `json:"id"`
	VideoID    uint   `json:"video_id"`
	Status     string `json:"status"`
	MediaURL   string `json:"media_url,omitempty"`
	ErrorMsg   string `json:"error_msg,omitempty"`
	RetryCount int    `json:"retry_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type SocialTokenRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	PageID       string `json:"page_id,omitempty"`
}

type PaymentWebhookRequest struct {
	EventID string `json:"event_id"`
	UserID  uint   `json:"user_id"`
	Plan    string `json:"plan"`
	Status  string `json:"status"`
}

type CreditsResponse struct {
	Credits  int    `json:"credits"`
	PlanTier string `json:"plan_tier"`
}

type QueueStatusResponse struct {
	Pending int64    `json:"pending"`
	Jobs    []string `json:"jobs"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
