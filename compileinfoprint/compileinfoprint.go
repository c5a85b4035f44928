// compileinfoprint is imported for the side effect of logging the
// compileinfo when a binary starts.
package compileinfoprint

import (
	"github.com/carbocation/urinestudy/compileinfo"
	"github.com/carbocation/urinestudy/logging"
)

func init() {
	logging.Logger(logging.SourceBuild).Info("build", compileinfo.Get().KeyVals()...)
}
