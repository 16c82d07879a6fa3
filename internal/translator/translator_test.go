package translator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/internal/llm"
	"github.com/marte113/Player-On-Caption/internal/transcript"
)

type fakeOpenAI struct {
	instructions string
	input        string
	reply        string
	err          error
	events       []llm.StreamEvent
}

func (f *fakeOpenAI) Complete(_ context.Context, instructions, input string) (string, error) {
	f.instructions, f.input = instructions, input
	return f.reply, f.err
}

func (f *fakeOpenAI) Stream(_ context.Context, instructions, input string) (<-chan llm.StreamEvent, error) {
	f.instructions, f.input = instructions, input
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type fakeDeepL struct {
	lines  []string
	target language.Tag
	err    error
	drop   int
}

func (f *fakeDeepL) Translate(_ context.Context, lines []string, _, target language.Tag) ([]string, error) {
	f.lines, f.target = lines, target
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "KO:" + l
	}
	return out[:len(out)-f.drop], nil
}

func TestDoOpenAI(t *testing.T) {
	openai := &fakeOpenAI{reply: "Hello world\n안녕 세상\n"}
	c := New(openai, nil, language.Korean)

	res := c.Do(context.Background(), Request{Provider: ProviderOpenAI, Text: "Hello world\n\n  Goodbye  \n"})
	require.True(t, res.OK())
	assert.Equal(t, "Hello world\n안녕 세상\n", res.Data())
	assert.Equal(t, "Hello world\nGoodbye", openai.input)
	assert.Contains(t, openai.instructions, "Korean")
}

func TestDoDeepLPairsByPosition(t *testing.T) {
	deepl := &fakeDeepL{}
	c := New(nil, deepl, language.Korean)

	res := c.Do(context.Background(), Request{Provider: ProviderDeepL, Text: "one\ntwo"})
	require.True(t, res.OK())
	assert.Equal(t, "one\nKO:one\ntwo\nKO:two\n", res.Data())
	assert.Equal(t, language.Korean, deepl.target)
}

func TestTranslateLinesShortDeepLReply(t *testing.T) {
	c := New(nil, &fakeDeepL{drop: 1}, language.Korean)

	_, pairs, err := c.TranslateLines(context.Background(), ProviderDeepL, []string{"one", "two"})
	assert.True(t, errs.IsKind(err, errs.KindUpstream))
	assert.Nil(t, pairs)
}

func TestDoFailures(t *testing.T) {
	upstream := errs.Upstream("openai", 500, "boom")
	c := New(&fakeOpenAI{err: upstream}, nil, language.Korean)

	res := c.Do(context.Background(), Request{Provider: ProviderOpenAI, Text: "x"})
	assert.False(t, res.OK())
	assert.True(t, errs.IsKind(res.Err(), errs.KindUpstream))

	res = c.Do(context.Background(), Request{Provider: ProviderDeepL, Text: "x"})
	assert.True(t, errs.IsKind(res.Err(), errs.KindConfig), "deepl not configured")

	res = c.Do(context.Background(), Request{Provider: "google", Text: "x"})
	assert.True(t, errs.IsKind(res.Err(), errs.KindValidation))

	res = c.Do(context.Background(), Request{Provider: ProviderOpenAI, Text: " \n "})
	assert.True(t, errs.IsKind(res.Err(), errs.KindValidation))
}

func TestTranslateLines(t *testing.T) {
	c := New(&fakeOpenAI{reply: "a\nA\n"}, &fakeDeepL{}, language.Korean)

	text, pairs, err := c.TranslateLines(context.Background(), ProviderOpenAI, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "a\nA\n", text)
	assert.Nil(t, pairs)

	text, pairs, err = c.TranslateLines(context.Background(), ProviderDeepL, []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, []transcript.Pair{{Source: "a", Target: "KO:a"}, {Source: "b", Target: "KO:b"}}, pairs)
}

func TestStream(t *testing.T) {
	openai := &fakeOpenAI{events: []llm.StreamEvent{
		{Kind: llm.EventDelta, Text: "A\n"},
		{Kind: llm.EventDone},
	}}
	c := New(openai, &fakeDeepL{}, language.Korean)

	events, err := c.Stream(context.Background(), ProviderOpenAI, "A")
	require.NoError(t, err)
	var kinds []llm.EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []llm.EventKind{llm.EventDelta, llm.EventDone}, kinds)

	_, err = c.Stream(context.Background(), ProviderDeepL, "A")
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
	assert.True(t, CanStream(ProviderOpenAI))
	assert.False(t, CanStream(ProviderDeepL))
}

func TestResultJSON(t *testing.T) {
	b, err := json.Marshal(Success("A\nB\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"data":"A\nB\n"}`, string(b))

	b, err = json.Marshal(Failure(errors.New("OpenAI API error: 401")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"error":"OpenAI API error: 401"}`, string(b))

	b, err = json.Marshal(Success(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"data":""}`, string(b))

	var r Result
	require.NoError(t, json.Unmarshal([]byte(`{"ok":false,"error":"nope"}`), &r))
	assert.False(t, r.OK())
	assert.EqualError(t, r.Err(), "nope")

	require.NoError(t, json.Unmarshal([]byte(`{"ok":true,"data":"x"}`), &r))
	data, err := r.Get()
	assert.NoError(t, err)
	assert.Equal(t, "x", data)

	assert.Error(t, json.Unmarshal([]byte(`{"ok":true}`), &r))
}

func TestBuildInstructions(t *testing.T) {
	prompt := BuildInstructions(language.Korean)
	assert.Contains(t, prompt, "Korean")
	assert.Contains(t, prompt, "alternating lines")
	assert.Contains(t, prompt, "exactly one translated line")

	assert.Contains(t, BuildInstructions(language.Japanese), "Japanese")
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitLines("  a \n\n\tb\n"))
	assert.Nil(t, SplitLines(""))
}
