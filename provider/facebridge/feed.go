package facebridge

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/infrastructure/request"
	"social-gateway/provider"
)

// Feed retrieval walks the graph's paging.next links; since/until narrow the
// window server-side so no client-side filtering is needed.
func (f *Facebridge) GetFeedURL(authz *model.Authorization) (string, string) {
	return graphBase, "/me/feed"
}

func (f *Facebridge) GetFeedArgs(authz *model.Authorization) url.Values {
	return url.Values{
		"access_token": {authz.Token},
		"fields":       {"id,from,message,story,type,link,name,description,caption,picture,source,place,created_time,privacy,status_type"},
	}
}

func (f *Facebridge) GetFeedLimit(n int) url.Values {
	return url.Values{"limit": {strconv.Itoa(n)}}
}

func (f *Facebridge) GetFeedTimestamp(ts int64, forward bool) url.Values {
	key := "until"
	if forward {
		key = "since"
	}
	return url.Values{key: {strconv.FormatInt(ts, 10)}}
}

func (f *Facebridge) FeedPaging() request.Paging {
	return request.Paging{
		ItemsField:     "data",
		Direction:      "next",
		PagingEnvelope: "paging",
	}
}

var activityTypes = map[string]model.ActivityType{
	"link":   model.ActivityArticle,
	"photo":  model.ActivityPhoto,
	"status": model.ActivityStatus,
	"video":  model.ActivityVideo,
}

func (f *Facebridge) ParsePost(raw map[string]interface{}, fctx *provider.FeedContext) (*model.StreamEvent, error) {
	postID, _ := raw["id"].(string)
	if postID == "" {
		return nil, apperror.New(apperror.UnknownResponse, "feed entry missing id").WithService("facebridge")
	}

	ts := int64(0)
	if created, ok := raw["created_time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, created); err == nil {
			ts = parsed.Unix()
		}
	}

	activityType := model.ActivityStatus
	if mapped, ok := activityTypes[stringField(raw, "type")]; ok {
		activityType = mapped
	}

	story := stringField(raw, "message")
	if story == "" {
		story = stringField(raw, "story")
	}

	event := &model.StreamEvent{
		Metadata: model.EventMetadata{
			PostID:    postID,
			Timestamp: ts,
			Service:   "facebridge",
			IsPrivate: parsePrivacy(raw),
		},
		Activity: model.EventActivity{
			Type:          activityType,
			Story:         story,
			ActivityLink:  stringField(raw, "link"),
			Name:          stringField(raw, "name"),
			Description:   stringField(raw, "description"),
			Caption:       stringField(raw, "caption"),
			ThumbnailLink: stringField(raw, "picture"),
			VideoLink:     stringField(raw, "source"),
		},
	}

	if place, ok := raw["place"].(map[string]interface{}); ok {
		event.Activity.Location = stringField(place, "name")
	}

	echo := 1
	if from, ok := raw["from"].(map[string]interface{}); ok {
		event.Author = model.EventAuthor{
			UserID: fmt.Sprintf("%v", from["id"]),
			Name:   stringField(from, "name"),
		}
		event.Author.ProfileURL = "https://www.facebridge.example/" + event.Author.UserID
		if event.Author.UserID == fctx.Authz.UserID {
			echo = 0
		}
	}
	event.Metadata.IsEcho = &echo
	return event, nil
}

// parsePrivacy treats an absent or empty privacy block as unknown, which
// counts as private for filtering purposes.
func parsePrivacy(raw map[string]interface{}) int {
	privacy, ok := raw["privacy"].(map[string]interface{})
	if !ok {
		return 1
	}
	if stringField(privacy, "value") == "EVERYONE" {
		return 0
	}
	return 1
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

var _ provider.FeedProvider = (*Facebridge)(nil)
