package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	projectIDVar          = "ACC_PROJECT_ID"
	requestTimeoutVar     = "ACC_REQUEST_TIMEOUT"
	requestsPerSecondVar  = "ACC_REQUESTS_PER_SECOND"
	maxRetriesVar         = "ACC_MAX_RETRIES"
	defaultSearchLimitVar = "RFI_DEFAULT_LIMIT"
	maxSearchLimitVar     = "RFI_MAX_LIMIT"
	hydrationWorkersVar   = "RFI_HYDRATION_WORKERS"
	attributeMappingVar   = "RFI_ATTRIBUTE_MAPPING_FILE"
	timezoneVar           = "ACC_TIMEZONE"
	rfiWebURLVar          = "ACC_RFI_WEB_URL"
)

type RFIConfig interface {
	GetProjectID() string
	GetRequestTimeout() time.Duration
	GetRequestsPerSecond() float64
	GetMaxRetries() int
	GetDefaultSearchLimit() int
	GetMaxSearchLimit() int
	GetHydrationWorkers() int
	GetAttributeMappingFile() string
	GetLocation() (*time.Location, error)
	GetRFIWebURL() string
}

type RFI struct {
	v *viper.Viper
}

var _ RFIConfig = RFI{}

func (r RFI) GetProjectID() string {
	return r.v.GetString(projectIDVar)
}

func (r RFI) GetRequestTimeout() time.Duration {
	return r.v.GetDuration(requestTimeoutVar)
}

func (r RFI) GetRequestsPerSecond() float64 {
	return r.v.GetFloat64(requestsPerSecondVar)
}

func (r RFI) GetMaxRetries() int {
	return r.v.GetInt(maxRetriesVar)
}

func (r RFI) GetDefaultSearchLimit() int {
	return r.v.GetInt(defaultSearchLimitVar)
}

// GetMaxSearchLimit caps a caller supplied limit. 200 is the page size ceiling of search:rfis.
func (r RFI) GetMaxSearchLimit() int {
	return r.v.GetInt(maxSearchLimitVar)
}

func (r RFI) GetHydrationWorkers() int {
	return r.v.GetInt(hydrationWorkersVar)
}

func (r RFI) GetAttributeMappingFile() string {
	return r.v.GetString(attributeMappingVar)
}

// GetLocation is the zone "activity after" input is entered in. Users type
// local wall-clock times; ACC filters on UTC.
func (r RFI) GetLocation() (*time.Location, error) {
	return time.LoadLocation(r.v.GetString(timezoneVar))
}

func (r RFI) GetRFIWebURL() string {
	return r.v.GetString(rfiWebURLVar)
}
