package twitter

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/airenas/spacego/internal/pkg/utils"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
)

const (
	defaultSpaceURL  = "https://x.com/i/api/graphql/Tvv_cNXCbtTcgdy1vWYPMw/AudioSpaceById"
	defaultStreamURL = "https://x.com/i/api/1.1/live_video_stream/status"
	defaultBearer    = "Bearer AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// features flags expected by the AudioSpaceById graphql query
const spaceFeatures = `{"spaces_2022_h2_spaces_communities":true,"spaces_2022_h2_clipping":true,` +
	`"creator_subscriptions_tweet_preview_api_enabled":true,"rweb_tipjar_consumption_enabled":true,` +
	`"responsive_web_graphql_exclude_directive_enabled":true,"verified_phone_label_enabled":false,` +
	`"communities_web_enable_tweet_community_results_fetch":true,"c9s_tweet_anatomy_moderator_badge_enabled":true,` +
	`"articles_preview_enabled":true,"responsive_web_graphql_skip_user_profile_image_extensions_enabled":false,` +
	`"responsive_web_edit_tweet_api_enabled":true,"graphql_is_translatable_rweb_tweet_is_translatable_enabled":true,` +
	`"view_counts_everywhere_api_enabled":true,"longform_notetweets_consumption_enabled":true,` +
	`"responsive_web_twitter_article_tweet_consumption_enabled":true,"tweet_awards_web_tipping_enabled":false,` +
	`"freedom_of_speech_not_reach_fetch_enabled":true,"standardized_nudges_misinfo":true,` +
	`"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled":true,` +
	`"rweb_video_timestamps_enabled":true,"longform_notetweets_rich_text_read_enabled":true,` +
	`"longform_notetweets_inline_media_enabled":true,"responsive_web_graphql_timeline_navigation_enabled":true,` +
	`"responsive_web_enhance_cards_enabled":false}`

// SpaceInfo is the metadata of a recorded space
type SpaceInfo struct {
	ID                 string
	Title              string
	CreatorID          string
	State              string
	MediaKey           string
	AvailableForReplay bool
}

// Client communicates with the twitter private API
type Client struct {
	httpclient *http.Client
	spaceURL   string
	streamURL  string
	bearer     string
	cookies    *Cookies
	backoffF   func() backoff.BackOff
}

// NewClient creates a twitter API client
func NewClient(cookies *Cookies) (*Client, error) {
	if cookies == nil {
		return nil, errors.New("no cookies provided")
	}
	res := Client{cookies: cookies}
	res.spaceURL = cmdapp.Config.GetString("twitter.url.space")
	if res.spaceURL == "" {
		res.spaceURL = defaultSpaceURL
	}
	res.streamURL = cmdapp.Config.GetString("twitter.url.stream")
	if res.streamURL == "" {
		res.streamURL = defaultStreamURL
	}
	res.bearer = cmdapp.Config.GetString("twitter.bearer")
	if res.bearer == "" {
		res.bearer = defaultBearer
	}
	res.httpclient = &http.Client{Timeout: time.Minute}
	res.backoffF = newAPIBackoff
	return &res, nil
}

func newAPIBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	res.InitialInterval = time.Second
	res.MaxElapsedTime = time.Second * 30
	return res
}

// GetSpace fetches space metadata, retrying transport failures.
// Deleted or private spaces map to a terminal error.
func (c *Client) GetSpace(ID string) (*SpaceInfo, error) {
	cmdapp.Log.Infof("Get space info %s", ID)
	var res *SpaceInfo
	op := func() error {
		var err error
		res, err = c.getSpace(ID)
		if err != nil && errs.Code(err) != errs.DefaultCode {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, c.backoffF()); err != nil {
		return nil, err
	}
	return res, nil
}

type spaceResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Data struct {
		AudioSpace struct {
			Metadata struct {
				RestID         string `json:"rest_id"`
				State          string `json:"state"`
				Title          string `json:"title"`
				MediaKey       string `json:"media_key"`
				CreatorResults struct {
					Result struct {
						RestID string `json:"rest_id"`
					} `json:"result"`
				} `json:"creator_results"`
				IsSpaceAvailableForReplay bool `json:"is_space_available_for_replay"`
			} `json:"metadata"`
		} `json:"audioSpace"`
	} `json:"data"`
}

func (c *Client) getSpace(ID string) (*SpaceInfo, error) {
	variables, err := json.Marshal(map[string]interface{}{"id": ID, "isMetatagsQuery": false,
		"withReplays": true, "withListeners": true})
	if err != nil {
		return nil, errors.Wrap(err, "can't prepare query")
	}
	urlStr := c.spaceURL + "?variables=" + url.QueryEscape(string(variables)) +
		"&features=" + url.QueryEscape(spaceFeatures)
	resp, err := c.invoke(urlStr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr spaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, "can't decode space response")
	}
	if len(sr.Errors) > 0 {
		return nil, errors.Wrapf(errs.ErrNotAvailable, "twitter API error: %s", sr.Errors[0].Message)
	}
	md := sr.Data.AudioSpace.Metadata
	if md.RestID == "" && md.MediaKey == "" && md.Title == "" {
		return nil, errors.Wrap(errs.ErrNotAvailable, "no space data in response")
	}
	return &SpaceInfo{ID: ID, Title: md.Title, CreatorID: md.CreatorResults.Result.RestID,
		State: md.State, MediaKey: md.MediaKey,
		AvailableForReplay: md.IsSpaceAvailableForReplay}, nil
}

type streamResponse struct {
	Source struct {
		Location string `json:"location"`
	} `json:"source"`
}

// GetStreamURL resolves the HLS playlist location of the space recording
func (c *Client) GetStreamURL(mediaKey string) (string, error) {
	var res string
	op := func() error {
		var err error
		res, err = c.getStreamURL(mediaKey)
		if err != nil && errs.Code(err) != errs.DefaultCode {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(op, c.backoffF()); err != nil {
		return "", err
	}
	return res, nil
}

func (c *Client) getStreamURL(mediaKey string) (string, error) {
	urlStr := utils.URLJoin(c.streamURL, mediaKey) +
		"?client=web&use_syndication_guest_id=false&cookie_set_host=x.com"
	resp, err := c.invoke(urlStr)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var sr streamResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", errors.Wrap(err, "can't decode stream response")
	}
	if sr.Source.Location == "" {
		return "", errors.Wrap(errs.ErrStreamUnavailable, "no HLS location in response")
	}
	return sr.Source.Location, nil
}

func (c *Client) invoke(urlStr string) (*http.Response, error) {
	csrf, err := c.cookies.CSRF()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "can't prepare request")
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Authorization", c.bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", c.cookies.Header())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-twitter-auth-type", "OAuth2Client")
	req.Header.Set("x-twitter-active-user", "yes")
	req.Header.Set("x-csrf-token", csrf)
	req.Header.Set("Referer", "https://x.com/")
	req.Header.Set("Origin", "https://x.com")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "can't call "+utils.URLToLog(urlStr))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		defer resp.Body.Close()
		return nil, errors.Wrapf(errs.ErrAuthentication, "twitter API returned %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		defer resp.Body.Close()
		return nil, errors.Wrap(errs.ErrNotAvailable, "twitter API returned 404")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, errors.Errorf("twitter API returned %d: %s", resp.StatusCode, string(msg))
	}
	return resp, nil
}
