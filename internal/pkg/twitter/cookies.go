package twitter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airenas/spacego/internal/pkg/cmdapp"
	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

type cookie struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Cookies keeps browser session cookies loaded from a json file.
// The file is watched and reloaded on change, so a cookie refresh
// does not require a service restart.
type Cookies struct {
	file    string
	watcher *fsnotify.Watcher

	m      sync.RWMutex
	header string
	csrf   string
}

// NewCookies loads cookies from the configured file and starts watching it
func NewCookies(file string) (*Cookies, error) {
	if file == "" {
		return nil, errors.Wrap(errs.ErrAuthentication, "no cookies file configured")
	}
	res := &Cookies{file: file}
	if err := res.load(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "can't init file watcher")
	}
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "can't watch "+filepath.Dir(file))
	}
	res.watcher = watcher
	go res.watch()
	return res, nil
}

func (c *Cookies) watch() {
	for event := range c.watcher.Events {
		if event.Name != c.file {
			continue
		}
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		cmdapp.Log.Infof("Cookies file changed, reloading %s", c.file)
		cmdapp.LogIf(c.load())
	}
}

func (c *Cookies) load() error {
	data, err := os.ReadFile(c.file)
	if err != nil {
		return errors.Wrapf(errs.ErrAuthentication, "can't read cookies file %s: %v", c.file, err)
	}
	var cookies []cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return errors.Wrapf(errs.ErrAuthentication, "can't parse cookies file %s: %v", c.file, err)
	}
	if len(cookies) == 0 {
		return errors.Wrapf(errs.ErrAuthentication, "empty cookies file %s", c.file)
	}
	header, csrf := "", ""
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, ck.Key+"="+ck.Value)
		if ck.Key == "ct0" {
			csrf = ck.Value
		}
	}
	header = strings.Join(parts, "; ")

	c.m.Lock()
	defer c.m.Unlock()
	c.header = header
	c.csrf = csrf
	cmdapp.Log.Infof("Loaded %d cookies", len(cookies))
	return nil
}

// Header returns the Cookie header value
func (c *Cookies) Header() string {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.header
}

// CSRF returns the ct0 cookie used as the x-csrf-token header
func (c *Cookies) CSRF() (string, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	if c.csrf == "" {
		return "", errors.Wrap(errs.ErrAuthentication, "missing ct0 cookie")
	}
	return c.csrf, nil
}

// Close stops the file watcher
func (c *Cookies) Close() {
	if c.watcher != nil {
		c.watcher.Close()
	}
}
