package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
		msg  string
	}{
		{"string SUCCESS", `{"status":"SUCCESS","message":"Login successful"}`, true, "Login successful"},
		{"lowercase success", `{"status":"success"}`, true, ""},
		{"bool true", `{"status":true,"message":"Added"}`, true, "Added"},
		{"string true", `{"status":"true"}`, true, ""},
		{"numeric one", `{"status":1}`, true, ""},
		{"failure string", `{"status":"FAILURE","message":"Invalid password"}`, false, "Invalid password"},
		{"bool false", `{"status":false,"message":"Out of stock"}`, false, "Out of stock"},
		{"wrapped array", `[{"status":"SUCCESS","message":"ok"}]`, true, "ok"},
		{"success key", `{"success":true}`, true, ""},
		{"message sniffing", `{"message":"Address saved successfully"}`, true, "Address saved successfully"},
		{"message sniffing failure", `{"message":"Payment not successful"}`, false, "Payment not successful"},
		{"unknown status falls back to message", `{"status":"DONE","message":"Updated successfully"}`, true, "Updated successfully"},
		{"bare sentinel", `"SUCCESS"`, true, ""},
		{"empty array", `[]`, false, ErrEmptyResponse.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Interpret([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.ok, res.OK)
			assert.Equal(t, tt.msg, res.Message)
		})
	}
}

func TestInterpret_InvalidBody(t *testing.T) {
	_, err := Interpret([]byte("<html>oops</html>"))
	assert.Error(t, err)
}

func TestResult_Err(t *testing.T) {
	res, err := Interpret([]byte(`{"status":"FAILURE","message":"Mobile number not registered"}`))
	require.NoError(t, err)

	var se *StatusError
	require.True(t, errors.As(res.Err(), &se))
	assert.Equal(t, "FAILURE", se.Status)
	assert.Equal(t, "Mobile number not registered", se.Error())
}

func TestResult_Decode(t *testing.T) {
	res, err := Interpret([]byte(`[{"status":"SUCCESS","data":[{"userid":42,"firstname":"Asha"}]}]`))
	require.NoError(t, err)

	var user struct {
		UserID    int    `json:"userid"`
		FirstName string `json:"firstname"`
	}
	require.NoError(t, res.Decode(&user, "data", "user"))
	assert.Equal(t, 42, user.UserID)
	assert.Equal(t, "Asha", user.FirstName)

	// Without a matching key the envelope itself is decoded.
	res, err = Interpret([]byte(`{"status":"SUCCESS","userid":"7","firstname":"Ravi"}`))
	require.NoError(t, err)
	var flat struct {
		UserID string `json:"userid"`
	}
	require.NoError(t, res.Decode(&flat, "data"))
	assert.Equal(t, "7", flat.UserID)
}
