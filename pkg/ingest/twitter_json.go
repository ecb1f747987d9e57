package ingest

import (
	"encoding/json"
	"slices"

	"github.com/kittclouds/coordnet/internal/corerr"
	"github.com/kittclouds/coordnet/internal/store"
	"github.com/kittclouds/coordnet/pkg/tokenizer"
)

// twitterTweet mirrors the subset of a tweet-export JSON object coordnet
// cares about. Fields beyond these are ignored.
type twitterTweet struct {
	ID              string  `json:"id_str"`
	UserID          string  `json:"user_id_str"`
	Username        string  `json:"screen_name"`
	Text            string  `json:"full_text"`
	Timestamp       float64 `json:"timestamp_ms"`
	RetweetedID     string  `json:"retweeted_status_id_str"`
	InReplyToID     string  `json:"in_reply_to_status_id_str"`
	URLEntities     []struct {
		ExpandedURL string `json:"expanded_url"`
	} `json:"entities_urls"`
}

// TwitterJSONAdapter parses a JSON array of tweet-export objects.
type TwitterJSONAdapter struct {
	// ExtractInlineURLs, when true, also scans Text for bare scheme-prefixed
	// URLs not present in URLEntities.
	ExtractInlineURLs bool
}

func (a TwitterJSONAdapter) Parse(data []byte) ([]store.Message, error) {
	var tweets []twitterTweet
	if err := json.Unmarshal(data, &tweets); err != nil {
		return nil, corerr.Wrap(corerr.KindInputMalformed, "parse twitter json batch", err)
	}

	out := make([]store.Message, 0, len(tweets))
	for _, tw := range tweets {
		urls := make([]string, 0, len(tw.URLEntities))
		for _, u := range tw.URLEntities {
			if u.ExpandedURL != "" {
				urls = append(urls, u.ExpandedURL)
			}
		}
		if a.ExtractInlineURLs {
			for _, inline := range tokenizer.ExtractURLs(tw.Text) {
				if !slices.Contains(urls, inline) {
					urls = append(urls, inline)
				}
			}
		}
		out = append(out, store.Message{
			MessageID: tw.ID,
			UserID:    tw.UserID,
			Username:  tw.Username,
			RepostID:  tw.RetweetedID,
			ReplyID:   tw.InReplyToID,
			Text:      tw.Text,
			Timestamp: tw.Timestamp / 1000,
			URLs:      urls,
		})
	}
	return out, nil
}
