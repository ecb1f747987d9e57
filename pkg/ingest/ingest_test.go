package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwitterJSONAdapterParsesBatch(t *testing.T) {
	data := []byte(`[
		{"id_str":"1","user_id_str":"u1","screen_name":"alice","full_text":"hello","timestamp_ms":1000000,
		 "entities_urls":[{"expanded_url":"http://example.com/a"}]},
		{"id_str":"2","user_id_str":"u2","screen_name":"bob","full_text":"rt","timestamp_ms":2000000,
		 "retweeted_status_id_str":"1"}
	]`)

	msgs, err := TwitterJSONAdapter{}.Parse(data)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "1", msgs[0].MessageID)
	assert.Equal(t, "u1", msgs[0].UserID)
	assert.Equal(t, 1000.0, msgs[0].Timestamp)
	assert.Equal(t, []string{"http://example.com/a"}, msgs[0].URLs)

	assert.Equal(t, "1", msgs[1].RepostID)
	assert.True(t, msgs[1].IsRepost())
}

func TestTwitterJSONAdapterRejectsMalformedJSON(t *testing.T) {
	_, err := TwitterJSONAdapter{}.Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestCSVAdapterParsesRows(t *testing.T) {
	data := []byte("message_id,user_id,username,repost_id,reply_id,message,timestamp,urls\n" +
		"m1,u1,alice,,,hello world,1.5,\n" +
		"m2,u2,bob,m1,,rt of m1,2.5,http://a.example http://b.example\n")

	msgs, err := CSVAdapter{}.Parse(data)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "m1", msgs[0].MessageID)
	assert.Equal(t, 1.5, msgs[0].Timestamp)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, msgs[1].URLs)
	assert.Equal(t, "m1", msgs[1].RepostID)
}

func TestCSVAdapterRejectsMissingColumn(t *testing.T) {
	data := []byte("message_id,user_id\nm1,u1\n")
	_, err := CSVAdapter{}.Parse(data)
	assert.Error(t, err)
}

func TestCSVAdapterFallsBackToInlineURLExtraction(t *testing.T) {
	data := []byte("message_id,user_id,username,repost_id,reply_id,message,timestamp,urls\n" +
		"m1,u1,alice,,,check http://inline.example/x out,1,\n")

	msgs, err := CSVAdapter{}.Parse(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"http://inline.example/x"}, msgs[0].URLs)
}

func TestCSVAdapterSynthesizesMissingMessageID(t *testing.T) {
	data := []byte("message_id,user_id,username,repost_id,reply_id,message,timestamp,urls\n" +
		",u1,alice,,,original post with no id,1,\n")

	msgs, err := CSVAdapter{}.Parse(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.NotEmpty(t, msgs[0].MessageID)
}
