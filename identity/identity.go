package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrMissingField is returned when a required JSON member is absent or null.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is returned when a JSON member is present but carries an unusable value.
	ErrInvalidField = errors.New("invalid field value")
)

// AuthorizationHandle identifies one pending authorization attempt at the
// identity provider. Code correlates the poll calls; URL is the page the user
// must visit to approve the login.
type AuthorizationHandle struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

// UnmarshalJSON requires both members and an absolute URL.
func (h *AuthorizationHandle) UnmarshalJSON(data []byte) error {
	var aux struct {
		Code *string `json:"code"`
		URL  *string `json:"url"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Code == nil {
		return missing("code")
	}
	if aux.URL == nil {
		return missing("url")
	}

	u, err := url.Parse(*aux.URL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: url %q is not absolute", ErrInvalidField, *aux.URL)
	}

	h.Code = *aux.Code
	h.URL = u.String()
	return nil
}

// UserStatus is the account status reported by the identity provider. It is
// serialized as its integer value.
type UserStatus int

const (
	// StatusDisabled marks an account that may not log in.
	StatusDisabled UserStatus = 0
	// StatusNormal marks an active account.
	StatusNormal UserStatus = 1
	// StatusUnverified marks an account whose email has not been confirmed.
	StatusUnverified UserStatus = -1
)

func (s UserStatus) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusNormal:
		return "normal"
	case StatusUnverified:
		return "unverified"
	default:
		return fmt.Sprintf("UserStatus(%d)", int(s))
	}
}

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	return s == StatusDisabled || s == StatusNormal || s == StatusUnverified
}

// UnmarshalJSON rejects statuses outside the known set.
func (s *UserStatus) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: status: %v", ErrInvalidField, err)
	}
	st := UserStatus(v)
	if int64(st) != v || !st.Valid() {
		return fmt.Errorf("%w: status %d", ErrInvalidField, v)
	}
	*s = st
	return nil
}

type UserSettings struct {
	EmailVerification      bool `json:"email_verification"`
	EmailAlarmNotification bool `json:"email_alarm_notification"`
}

type DeviceInfo struct {
	OS   string `json:"os"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// WhitelistItem is one device allowed to log in. Data holds the IP address or
// device identifier; Exp is a unix timestamp.
type WhitelistItem struct {
	Data string     `json:"data"`
	Info DeviceInfo `json:"info"`
	Exp  uint64     `json:"exp"`
}

// UserInfo carries the nested settings of a user record. Every member is
// optional on decode. Other keeps provider fields this package does not know.
type UserInfo struct {
	Settings             UserSettings      `json:"settings"`
	LoginDeviceWhitelist []WhitelistItem   `json:"login_device_whitelist"`
	Other                map[string]string `json:"other"`
}

// MarshalJSON always emits the whitelist as an array and other as an object.
func (i UserInfo) MarshalJSON() ([]byte, error) {
	type plain UserInfo
	p := plain(i)
	if p.LoginDeviceWhitelist == nil {
		p.LoginDeviceWhitelist = []WhitelistItem{}
	}
	if p.Other == nil {
		p.Other = map[string]string{}
	}
	return json.Marshal(p)
}

// Clone returns a deep copy of i.
func (i UserInfo) Clone() UserInfo {
	out := i
	if i.LoginDeviceWhitelist != nil {
		out.LoginDeviceWhitelist = make([]WhitelistItem, len(i.LoginDeviceWhitelist))
		copy(out.LoginDeviceWhitelist, i.LoginDeviceWhitelist)
	}
	if i.Other != nil {
		out.Other = make(map[string]string, len(i.Other))
		for k, v := range i.Other {
			out.Other[k] = v
		}
	}
	return out
}

// UserRecord is the authenticated identity returned by the provider.
type UserRecord struct {
	Name          string
	Email         *string
	Note          *string
	Status        UserStatus
	Info          UserInfo
	IsAdmin       bool
	ThirdAuthType *string
}

// Clone returns a deep copy of u.
func (u UserRecord) Clone() UserRecord {
	out := u
	out.Email = cloneString(u.Email)
	out.Note = cloneString(u.Note)
	out.ThirdAuthType = cloneString(u.ThirdAuthType)
	out.Info = u.Info.Clone()
	return out
}

// MarshalJSON emits the transport shape.
func (u UserRecord) MarshalJSON() ([]byte, error) {
	return MarshalTransport(u)
}

// UnmarshalJSON decodes the transport shape. name, status, info and is_admin
// are required; email, note and third_auth_type may be absent or null.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name          *string     `json:"name"`
		Email         *string     `json:"email"`
		Note          *string     `json:"note"`
		Status        *UserStatus `json:"status"`
		Info          *UserInfo   `json:"info"`
		IsAdmin       *bool       `json:"is_admin"`
		ThirdAuthType *string     `json:"third_auth_type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.Name == nil:
		return missing("name")
	case aux.Status == nil:
		return missing("status")
	case aux.Info == nil:
		return missing("info")
	case aux.IsAdmin == nil:
		return missing("is_admin")
	}

	*u = UserRecord{
		Name:          *aux.Name,
		Email:         aux.Email,
		Note:          aux.Note,
		Status:        *aux.Status,
		Info:          *aux.Info,
		IsAdmin:       *aux.IsAdmin,
		ThirdAuthType: aux.ThirdAuthType,
	}
	return nil
}

// AuthBody is the result of a successful login.
type AuthBody struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"type"`
	User        UserRecord `json:"user"`
}

// Clone returns a deep copy of b.
func (b AuthBody) Clone() AuthBody {
	out := b
	out.User = b.User.Clone()
	return out
}

// UnmarshalJSON requires access_token, type and user.
func (b *AuthBody) UnmarshalJSON(data []byte) error {
	var aux struct {
		AccessToken *string     `json:"access_token"`
		TokenType   *string     `json:"type"`
		User        *UserRecord `json:"user"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.AccessToken == nil:
		return missing("access_token")
	case aux.TokenType == nil:
		return missing("type")
	case aux.User == nil:
		return missing("user")
	}

	*b = AuthBody{
		AccessToken: *aux.AccessToken,
		TokenType:   *aux.TokenType,
		User:        *aux.User,
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
