package model

// ActivityType classifies a stream event's payload.
type ActivityType string

const (
	ActivityArticle     ActivityType = "article"
	ActivityPhoto       ActivityType = "photo"
	ActivityStatus      ActivityType = "status"
	ActivityTransaction ActivityType = "transaction"
	ActivityVideo       ActivityType = "video"
	ActivityVideoEmbed  ActivityType = "video_embed"
)

// StreamEvent is the normalized cross-provider activity record.
type StreamEvent struct {
	Metadata EventMetadata `json:"metadata"`
	Author   EventAuthor   `json:"author"`
	Activity EventActivity `json:"activity"`
}

// EventMetadata carries identity and filtering facts for an event.
// IsPrivate defaults to 0 for public feeds and 1 when privacy is unknown.
// IsEcho is 0 iff the event's author is the authorization's own user.
type EventMetadata struct {
	PostID    string `json:"post_id"`
	Timestamp int64  `json:"timestamp"`
	Service   string `json:"service"`
	IsPrivate int    `json:"is_private"`
	IsEcho    *int   `json:"is_echo,omitempty"`
}

// EventAuthor is the profile subset attached to an event.
type EventAuthor struct {
	UserID     string `json:"user_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Username   string `json:"username,omitempty"`
	ProfileURL string `json:"profile_link,omitempty"`
	PictureURL string `json:"profile_picture_link,omitempty"`
}

// EventActivity is the normalized payload of an event.
type EventActivity struct {
	Story           string       `json:"story"`
	Type            ActivityType `json:"type"`
	ActivityLink    string       `json:"activity_link,omitempty"`
	Name            string       `json:"name,omitempty"`
	Description     string       `json:"description,omitempty"`
	Caption         string       `json:"caption,omitempty"`
	PictureLink     string       `json:"picture_link,omitempty"`
	ThumbnailLink   string       `json:"thumbnail_link,omitempty"`
	VideoLink       string       `json:"video_link,omitempty"`
	VideoID         string       `json:"video_id,omitempty"`
	Location        string       `json:"location,omitempty"`
	AdditionalUsers []string     `json:"additional_users,omitempty"`
}

// StreamCacheRow is a persisted stream event for providers whose feeds are
// pre-populated by the collection daemon. Keyed by (guid, item_id).
type StreamCacheRow struct {
	GUID      string      `json:"guid"`
	ItemID    string      `json:"item_id"`
	Timestamp int64       `json:"timestamp"`
	Event     StreamEvent `json:"event"`
}
