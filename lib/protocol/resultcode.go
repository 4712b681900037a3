package protocol

import "fmt"

// ResultCode is a result code reported by the server for a single record or request
type ResultCode int32

const (
	ResultOK                   ResultCode = 0
	ResultServerError          ResultCode = 1
	ResultKeyNotFound          ResultCode = 2
	ResultGeneration           ResultCode = 3
	ResultParameter            ResultCode = 4
	ResultKeyExists            ResultCode = 5
	ResultBinExists            ResultCode = 6
	ResultClusterKeyMismatch   ResultCode = 7
	ResultServerMem            ResultCode = 8
	ResultTimeout              ResultCode = 9
	ResultAlwaysForbidden      ResultCode = 10
	ResultPartitionUnavailable ResultCode = 11
	ResultBinType              ResultCode = 12
	ResultRecordTooBig         ResultCode = 13
	ResultKeyBusy              ResultCode = 14
	ResultScanAbort            ResultCode = 15
	ResultUnsupported          ResultCode = 16
	ResultBinNotFound          ResultCode = 17
	ResultDeviceOverload       ResultCode = 18
	ResultKeyMismatch          ResultCode = 19
	ResultInvalidNamespace     ResultCode = 20
	ResultBinNameTooLong       ResultCode = 21
	ResultFailForbidden        ResultCode = 22
	ResultElementNotFound      ResultCode = 23
	ResultElementExists        ResultCode = 24
	ResultEnterpriseOnly       ResultCode = 25
	ResultOpNotApplicable      ResultCode = 26
	ResultFilteredOut          ResultCode = 27
	ResultLostConflict         ResultCode = 28
	ResultXDRKeyBusy           ResultCode = 32
	ResultQueryEnd             ResultCode = 50
	ResultSecurityNotSupported ResultCode = 51
	ResultSecurityNotEnabled   ResultCode = 52
	ResultInvalidUser          ResultCode = 60
	ResultNotAuthenticated     ResultCode = 80
	ResultRoleViolation        ResultCode = 81
	ResultUDFBadResponse       ResultCode = 100
	ResultBatchDisabled        ResultCode = 150
	ResultInvalidGeoJSON       ResultCode = 160
	ResultIndexFound           ResultCode = 200
	ResultIndexNotFound        ResultCode = 201
	ResultQueryAborted         ResultCode = 210

	// client side codes, negative like the server never reports them
	ResultClientError       ResultCode = -1
	ResultConnectionError   ResultCode = -2
	ResultClusterError      ResultCode = -3
	ResultInvalidNodeError  ResultCode = -4
	ResultNoMoreConnections ResultCode = -5
	ResultClientTimeout     ResultCode = -6
)

var resultCodeNames = map[ResultCode]string{
	ResultOK:                   "OK",
	ResultServerError:          "SERVER_ERROR",
	ResultKeyNotFound:          "KEY_NOT_FOUND_ERROR",
	ResultGeneration:           "GENERATION_ERROR",
	ResultParameter:            "PARAMETER_ERROR",
	ResultKeyExists:            "KEY_EXISTS_ERROR",
	ResultBinExists:            "BIN_EXISTS_ERROR",
	ResultClusterKeyMismatch:   "CLUSTER_KEY_MISMATCH",
	ResultServerMem:            "SERVER_MEM_ERROR",
	ResultTimeout:              "TIMEOUT",
	ResultAlwaysForbidden:      "ALWAYS_FORBIDDEN",
	ResultPartitionUnavailable: "PARTITION_UNAVAILABLE",
	ResultBinType:              "BIN_TYPE_ERROR",
	ResultRecordTooBig:         "RECORD_TOO_BIG",
	ResultKeyBusy:              "KEY_BUSY",
	ResultScanAbort:            "SCAN_ABORT",
	ResultUnsupported:          "UNSUPPORTED_FEATURE",
	ResultBinNotFound:          "BIN_NOT_FOUND",
	ResultDeviceOverload:       "DEVICE_OVERLOAD",
	ResultKeyMismatch:          "KEY_MISMATCH",
	ResultInvalidNamespace:     "INVALID_NAMESPACE",
	ResultBinNameTooLong:       "BIN_NAME_TOO_LONG",
	ResultFailForbidden:        "FAIL_FORBIDDEN",
	ResultElementNotFound:      "ELEMENT_NOT_FOUND",
	ResultElementExists:        "ELEMENT_EXISTS",
	ResultEnterpriseOnly:       "ENTERPRISE_ONLY",
	ResultOpNotApplicable:      "OP_NOT_APPLICABLE",
	ResultFilteredOut:          "FILTERED_OUT",
	ResultLostConflict:         "LOST_CONFLICT",
	ResultXDRKeyBusy:           "XDR_KEY_BUSY",
	ResultQueryEnd:             "QUERY_END",
	ResultSecurityNotSupported: "SECURITY_NOT_SUPPORTED",
	ResultSecurityNotEnabled:   "SECURITY_NOT_ENABLED",
	ResultInvalidUser:          "INVALID_USER",
	ResultNotAuthenticated:     "NOT_AUTHENTICATED",
	ResultRoleViolation:        "ROLE_VIOLATION",
	ResultUDFBadResponse:       "UDF_BAD_RESPONSE",
	ResultBatchDisabled:        "BATCH_DISABLED",
	ResultInvalidGeoJSON:       "GEO_INVALID_GEOJSON",
	ResultIndexFound:           "INDEX_ALREADY_EXISTS",
	ResultIndexNotFound:        "INDEX_NOT_FOUND",
	ResultQueryAborted:         "QUERY_ABORTED",
	ResultClientError:          "CLIENT_ERROR",
	ResultConnectionError:      "CONNECTION_ERROR",
	ResultClusterError:         "CLUSTER_ERROR",
	ResultInvalidNodeError:     "INVALID_NODE_ERROR",
	ResultNoMoreConnections:    "NO_MORE_CONNECTIONS",
	ResultClientTimeout:        "CLIENT_TIMEOUT",
}

// String returns the symbolic name of the code
func (c ResultCode) String() string {
	if name, ok := resultCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("RESULT_CODE_%d", int32(c))
}
