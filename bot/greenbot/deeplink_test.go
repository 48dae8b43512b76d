package greenbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDeepLink(t *testing.T) {
	tests := []struct {
		param string
		want  string
	}{
		{param: "process_65f0c1", want: "65f0c1"},
		{param: "65f0c1", want: "65f0c1"},
		{param: " process_p1 ", want: "p1"},
		{param: "promo_abc", want: ""},
		{param: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDeepLink(tt.param).ProcessID())
		})
	}
}

func TestExtractStartParam(t *testing.T) {
	assert.Equal(t, "process_p1", ExtractStartParam("/start process_p1"))
	assert.Equal(t, "", ExtractStartParam("/start"))
	assert.Equal(t, "", ExtractStartParam("hello"))
}

func TestProcessLinkRoundTrip(t *testing.T) {
	link := ProcessLink("green_bot", "65f0c1")
	assert.Equal(t, "https://t.me/green_bot?start=process_65f0c1", link)
	assert.Equal(t, "65f0c1", ParseDeepLink("process_65f0c1").ProcessID())
}
