package mqtt

import "errors"

// ErrPublishFailed is returned once every publish attempt has failed.
var ErrPublishFailed = errors.New("mqtt publish failed")
