package identity

import "encoding/json"

// transportUser fixes the member order of the full shape.
type transportUser struct {
	Name          string     `json:"name"`
	Email         *string    `json:"email"`
	Note          *string    `json:"note"`
	Status        UserStatus `json:"status"`
	Info          UserInfo   `json:"info"`
	IsAdmin       bool       `json:"is_admin"`
	ThirdAuthType *string    `json:"third_auth_type"`
}

type localUser struct {
	Name   string     `json:"name"`
	Status UserStatus `json:"status"`
}

// MarshalTransport serializes u in the full shape:
// name, email, note, status, info, is_admin, third_auth_type.
// Absent optional strings are emitted as null.
func MarshalTransport(u UserRecord) ([]byte, error) {
	return json.Marshal(transportUser{
		Name:          u.Name,
		Email:         u.Email,
		Note:          u.Note,
		Status:        u.Status,
		Info:          u.Info,
		IsAdmin:       u.IsAdmin,
		ThirdAuthType: u.ThirdAuthType,
	})
}

// MarshalLocal serializes u in the minimal shape kept on device: name and status.
func MarshalLocal(u UserRecord) ([]byte, error) {
	return json.Marshal(localUser{Name: u.Name, Status: u.Status})
}

// UnmarshalLocal reads a record written by MarshalLocal. Only Name and Status
// are populated.
func UnmarshalLocal(data []byte) (UserRecord, error) {
	var aux struct {
		Name   *string     `json:"name"`
		Status *UserStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return UserRecord{}, err
	}
	if aux.Name == nil {
		return UserRecord{}, missing("name")
	}
	if aux.Status == nil {
		return UserRecord{}, missing("status")
	}
	return UserRecord{Name: *aux.Name, Status: *aux.Status}, nil
}
