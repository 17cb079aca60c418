package devicemgr

import (
	"github.com/homectl/devicecore/internal/catalog"
	"github.com/homectl/devicecore/internal/deviceerr"
)

func deviceErrSetupFailed() error {
	return deviceerr.Wrap(deviceerr.CategorySetup, "DeviceSetupFinished", deviceerr.ErrSetupFailed)
}

func classSupportsAuto(class catalog.DeviceClass) bool {
	return class.SupportsCreateMethod(catalog.CreateMethodAuto)
}

func isAsyncOrNil(err error) bool {
	return err == nil || deviceerr.IsAsync(err)
}
