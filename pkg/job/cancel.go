package job

import "github.com/riverqueue/river"

// Cancel marks err as permanent: River records the failure and does not
// retry the job. A nil err is returned as nil.
func Cancel(err error) error {
	if err == nil {
		return nil
	}
	return river.JobCancel(err)
}
