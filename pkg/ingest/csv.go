package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/kittclouds/coordnet/internal/corerr"
	"github.com/kittclouds/coordnet/internal/store"
	"github.com/kittclouds/coordnet/pkg/tokenizer"
)

// csvColumns is the §6.1 row schema's column order.
var csvColumns = []string{"message_id", "user_id", "username", "repost_id", "reply_id", "message", "timestamp", "urls"}

// CSVAdapter parses the §6.1 flat row schema: a header row matching
// csvColumns (in any order) followed by one data row per message. The urls
// column is a whitespace-delimited list; when blank, URLs are recovered
// from the message text itself.
type CSVAdapter struct{}

func (CSVAdapter) Parse(data []byte) ([]store.Message, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, corerr.Wrap(corerr.KindInputMalformed, "read csv header", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	for _, required := range csvColumns {
		if _, ok := idx[required]; !ok {
			return nil, corerr.New(corerr.KindInputMalformed, "csv header missing column "+required)
		}
	}

	var out []store.Message
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, corerr.Wrap(corerr.KindInputMalformed, "read csv row", err)
		}

		ts, err := strconv.ParseFloat(rec[idx["timestamp"]], 64)
		if err != nil {
			return nil, corerr.Wrap(corerr.KindInputMalformed, "parse csv timestamp", err)
		}

		msg := rec[idx["message"]]
		urls := tokenizer.SplitWhitespaceURLs(rec[idx["urls"]])
		if len(urls) == 0 {
			urls = tokenizer.ExtractURLs(msg)
		}

		messageID := rec[idx["message_id"]]
		if messageID == "" {
			// Some exports omit a stable id for original posts; synthesize
			// one so the row still has a primary key to dedupe against.
			messageID = uuid.NewString()
		}

		out = append(out, store.Message{
			MessageID: messageID,
			UserID:    rec[idx["user_id"]],
			Username:  rec[idx["username"]],
			RepostID:  rec[idx["repost_id"]],
			ReplyID:   rec[idx["reply_id"]],
			Text:      msg,
			Timestamp: ts,
			URLs:      urls,
		})
	}
	return out, nil
}
