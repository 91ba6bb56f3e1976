package twister

import (
	"fmt"
	"net/url"
	"strconv"

	"social-gateway/domain/apperror"
	"social-gateway/domain/model"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/request"
	"social-gateway/infrastructure/utils"
	"social-gateway/provider"
)

// Feed retrieval pages the user timeline backwards with a max_id cursor. The
// endpoint has no lower time bound, so the scheduler refreshes a recent
// window into the stream cache and reads are windowed there;
// ShouldIncludePost covers any direct live read.
func (t *Twister) GetFeedURL(authz *model.Authorization) (string, string) {
	return apiBase, "/statuses/user_timeline.json"
}

func (t *Twister) GetFeedArgs(authz *model.Authorization) url.Values {
	return url.Values{
		"user_id":     {authz.UserID},
		"include_rts": {"true"},
	}
}

func (t *Twister) GetFeedLimit(n int) url.Values {
	return url.Values{"count": {strconv.Itoa(n)}}
}

func (t *Twister) GetFeedTimestamp(ts int64, forward bool) url.Values {
	// The API cannot seek by time; windowing happens client-side.
	return nil
}

func (t *Twister) FeedSign(authz *model.Authorization) request.SignFunc {
	app := t.AppInfo(configuration.C.Gateway.Environment)
	return t.signer(app, authz, nil)
}

func (t *Twister) FeedPaging() request.Paging {
	return request.Paging{
		MaxIDField:  "max_id",
		ItemIDField: "id",
	}
}

func (t *Twister) ParsePost(raw map[string]interface{}, fctx *provider.FeedContext) (*model.StreamEvent, error) {
	source := raw
	echo := 0
	if retweeted, ok := raw["retweeted_status"].(map[string]interface{}); ok {
		source = retweeted
		echo = 1
	}

	created, _ := raw["created_at"].(string)
	ts := int64(0)
	if parsed, err := utils.ParseRubyTime(created); err == nil {
		ts = utils.Epoch(parsed)
	}

	event := &model.StreamEvent{
		Metadata: model.EventMetadata{
			PostID:    fmt.Sprintf("%v", raw["id_str"]),
			Timestamp: ts,
			Service:   "twister",
			IsEcho:    &echo,
		},
		Activity: model.EventActivity{
			Type:  model.ActivityStatus,
			Story: stringField(source, "text"),
		},
	}

	if user, ok := source["user"].(map[string]interface{}); ok {
		event.Author = model.EventAuthor{
			UserID:     fmt.Sprintf("%v", user["id_str"]),
			Name:       stringField(user, "name"),
			Username:   stringField(user, "screen_name"),
			PictureURL: stringField(user, "profile_image_url_https"),
		}
		if protected, ok := user["protected"].(bool); ok && protected {
			event.Metadata.IsPrivate = 1
		}
		event.Author.ProfileURL = "https://twister.example/" + event.Author.Username
	}

	if event.Metadata.PostID == "" || event.Metadata.PostID == "<nil>" {
		return nil, apperror.New(apperror.UnknownResponse, "timeline entry missing id_str").WithService("twister")
	}

	// A retweet of someone else is still an echo-flagged event authored by
	// the original poster; IsEcho 0 only when the event author is the account
	// owner itself.
	if event.Author.UserID != fctx.Authz.UserID {
		one := 1
		event.Metadata.IsEcho = &one
	}
	return event, nil
}

// StreamCachedFeed marks timeline reads as cache-served. The API cannot seek
// by time, so a live windowed read would page the whole history; the scheduler
// keeps a recent window warm instead and /stream reads from it.
func (t *Twister) StreamCachedFeed() bool {
	return true
}

func (t *Twister) ShouldIncludePost(ev *model.StreamEvent, fctx *provider.FeedContext) bool {
	if fctx.Timestamp == 0 {
		return true
	}
	if fctx.Forward {
		return ev.Metadata.Timestamp >= fctx.Timestamp
	}
	return ev.Metadata.Timestamp <= fctx.Timestamp
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

var _ provider.FeedProvider = (*Twister)(nil)
var _ provider.PostFilter = (*Twister)(nil)
var _ provider.FeedSigner = (*Twister)(nil)
var _ provider.StreamCached = (*Twister)(nil)
