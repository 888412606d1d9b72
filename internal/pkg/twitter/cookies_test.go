package twitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/stretchr/testify/assert"
)

func writeCookies(t *testing.T, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "cookies.json")
	assert.Nil(t, os.WriteFile(file, []byte(data), 0644))
	return file
}

func TestCookies(t *testing.T) {
	file := writeCookies(t, `[{"key":"auth_token","value":"tok"},{"key":"ct0","value":"csrf1"}]`)
	c, err := NewCookies(file)
	assert.Nil(t, err)
	defer c.Close()
	assert.Equal(t, "auth_token=tok; ct0=csrf1", c.Header())
	csrf, err := c.CSRF()
	assert.Nil(t, err)
	assert.Equal(t, "csrf1", csrf)
}

func TestCookies_NoCSRF(t *testing.T) {
	file := writeCookies(t, `[{"key":"auth_token","value":"tok"}]`)
	c, err := NewCookies(file)
	assert.Nil(t, err)
	defer c.Close()
	_, err = c.CSRF()
	assert.NotNil(t, err)
	assert.Equal(t, "AUTHENTICATION_ERROR", errs.Code(err))
}

func TestCookies_NoFile(t *testing.T) {
	_, err := NewCookies(filepath.Join(t.TempDir(), "none.json"))
	assert.NotNil(t, err)
	assert.Equal(t, "AUTHENTICATION_ERROR", errs.Code(err))
}

func TestCookies_WrongJSON(t *testing.T) {
	file := writeCookies(t, `olia`)
	_, err := NewCookies(file)
	assert.NotNil(t, err)
	assert.Equal(t, "AUTHENTICATION_ERROR", errs.Code(err))
}

func TestCookies_Empty(t *testing.T) {
	file := writeCookies(t, `[]`)
	_, err := NewCookies(file)
	assert.NotNil(t, err)
}

func TestCookies_Reload(t *testing.T) {
	file := writeCookies(t, `[{"key":"ct0","value":"csrf1"}]`)
	c, err := NewCookies(file)
	assert.Nil(t, err)
	defer c.Close()
	assert.Nil(t, os.WriteFile(file, []byte(`[{"key":"ct0","value":"csrf2"}]`), 0644))
	assert.Nil(t, c.load())
	csrf, err := c.CSRF()
	assert.Nil(t, err)
	assert.Equal(t, "csrf2", csrf)
}
