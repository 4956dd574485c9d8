package site

import "errors"

var ErrInvalidQR = errors.New("unrecognized site qr code")
