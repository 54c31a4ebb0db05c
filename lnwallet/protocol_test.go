package lnwallet

import "testing"

func TestRequestTypeString(t *testing.T) {
	cases := map[RequestType]string{
		RequestTxInput:     "TXINPUT",
		RequestTxOutput:    "TXOUTPUT",
		RequestTxMeta:      "TXMETA",
		RequestTxExtraData: "TXEXTRADATA",
		RequestTxFinished:  "TXFINISHED",
		RequestType(42):    "UNKNOWN",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("RequestType(%d).String() = %q, want %q", in, got, want)
		}
	}
}
