package devicemgr

import (
	"fmt"
	"time"

	"github.com/homectl/devicecore/internal/catalog"
	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/deviceerr"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/paramtype"
	"github.com/homectl/devicecore/internal/plugin"
)

// PairDeviceJustAdd opens a pairing transaction holding user-specified
// params directly (no plugin handshake; confirmPairing transitions
// straight to setup). Rejected for classes whose setup method is JustAdd,
// since those devices are created through AddConfiguredDeviceUser instead.
func (m *Manager) PairDeviceJustAdd(classID ids.DeviceClassID, params paramtype.ParamList) (ids.PairingTransactionID, error) {
	class, err := m.catalog.DeviceClass(classID)
	if err != nil {
		return "", err
	}
	if class.SetupMethod == catalog.SetupMethodJustAdd {
		return "", deviceerr.Wrap(deviceerr.CategorySetup, "PairDeviceJustAdd",
			fmt.Errorf("%w: device class %q uses JustAdd setup", deviceerr.ErrSetupMethodNotSupported, classID))
	}

	txnID := ids.NewPairingTransactionID()
	m.mu.Lock()
	m.pairingsJustAdd[txnID] = pairingJustAdd{classID: classID, params: params}
	m.mu.Unlock()
	return txnID, nil
}

// PairDeviceDiscovery opens a pairing transaction for a previously
// discovered descriptor, consuming it. Rejected under the same condition
// as PairDeviceJustAdd.
func (m *Manager) PairDeviceDiscovery(classID ids.DeviceClassID, descriptorID ids.DeviceDescriptorID) (ids.PairingTransactionID, error) {
	class, err := m.catalog.DeviceClass(classID)
	if err != nil {
		return "", err
	}
	if class.SetupMethod == catalog.SetupMethodJustAdd {
		return "", deviceerr.Wrap(deviceerr.CategorySetup, "PairDeviceDiscovery",
			fmt.Errorf("%w: device class %q uses JustAdd setup", deviceerr.ErrSetupMethodNotSupported, classID))
	}

	m.mu.Lock()
	descriptor, ok := m.discovered[descriptorID]
	if !ok {
		m.mu.Unlock()
		return "", deviceerr.Wrap(deviceerr.CategoryLookup, "PairDeviceDiscovery", deviceerr.ErrDeviceDescriptorNotFound)
	}
	delete(m.discovered, descriptorID)

	txnID := ids.NewPairingTransactionID()
	m.pairingsDiscovery[txnID] = pairingDiscovery{classID: classID, descriptor: descriptor}
	m.mu.Unlock()
	return txnID, nil
}

// ConfirmPairing completes a pairing transaction. secret is accepted but
// never consumed, matching the upstream source's signature; it is
// reserved for a future pairing method (e.g. EnterPin) that needs it.
func (m *Manager) ConfirmPairing(txnID ids.PairingTransactionID, secret string) (ids.DeviceID, error) {
	_ = secret

	m.mu.Lock()
	if justAdd, ok := m.pairingsJustAdd[txnID]; ok {
		delete(m.pairingsJustAdd, txnID)
		m.mu.Unlock()
		return m.confirmJustAdd(txnID, justAdd)
	}
	discovery, ok := m.pairingsDiscovery[txnID]
	if ok {
		delete(m.pairingsDiscovery, txnID)
	}
	m.mu.Unlock()
	if !ok {
		return "", deviceerr.Wrap(deviceerr.CategoryLookup, "ConfirmPairing", deviceerr.ErrPairingTransactionIdNotFound)
	}

	return m.confirmDiscovery(txnID, discovery)
}

// confirmJustAdd transitions a JustAdd-table transaction straight into
// setup; the class's plugin handshake is skipped because these params
// were already fully specified by the caller.
func (m *Manager) confirmJustAdd(txnID ids.PairingTransactionID, txn pairingJustAdd) (ids.DeviceID, error) {
	class, err := m.catalog.DeviceClass(txn.classID)
	if err != nil {
		m.notifyPairingFinished(txnID, nil, err)
		return "", err
	}

	filled, err := m.validator.VerifyParams(class.ParamTypes, txn.params, true)
	if err != nil {
		m.notifyPairingFinished(txnID, nil, err)
		return "", err
	}

	dev := &device.Device{
		ID:            ids.NewDeviceID(),
		DeviceClassID: txn.classID,
		PluginID:      class.PluginID,
		Params:        filled,
		States:        make(map[ids.StateTypeID]interface{}),
		CreatedAt:     time.Now(),
	}

	err = m.runSetup(class, dev)
	if deviceerr.IsAsync(err) {
		// pairingFinished still fires now: the caller learns the minted
		// device ID even though setup itself completes later via the
		// ordinary DeviceSetupFinished callback.
		m.notifyPairingFinished(txnID, dev, nil)
		return dev.ID, err
	}
	m.notifyPairingFinished(txnID, dev, err)
	return dev.ID, err
}

// confirmDiscovery runs the Discovery-table handshake: the owning plugin's
// ConfirmPairing is invoked before setup begins.
func (m *Manager) confirmDiscovery(txnID ids.PairingTransactionID, txn pairingDiscovery) (ids.DeviceID, error) {
	class, err := m.catalog.DeviceClass(txn.classID)
	if err != nil {
		m.notifyPairingFinished(txnID, nil, err)
		return "", err
	}

	p, err := m.registry.Plugin(class.PluginID)
	if err != nil {
		m.notifyPairingFinished(txnID, nil, err)
		return "", err
	}

	status := p.ConfirmPairing(txnID, txn.classID, txn.descriptor.Params)
	switch status {
	case plugin.StatusSuccess:
		return m.beginSetupAfterPairing(txnID, class, txn.descriptor)
	case plugin.StatusFailure:
		err := deviceerr.Wrap(deviceerr.CategorySetup, "confirmDiscovery", deviceerr.ErrSetupFailed)
		m.notifyPairingFinished(txnID, nil, err)
		return "", err
	case plugin.StatusAsync:
		// Transaction stays in the Discovery table; resolved later by the
		// plugin's pairingFinished sink callback.
		m.mu.Lock()
		m.pairingsDiscovery[txnID] = txn
		m.mu.Unlock()
		return "", deviceerr.Async
	default:
		err := deviceerr.Wrap(deviceerr.CategorySetup, "confirmDiscovery",
			fmt.Errorf("%w: plugin returned unrecognised pairing status", deviceerr.ErrSetupFailed))
		m.notifyPairingFinished(txnID, nil, err)
		return "", err
	}
}

func (m *Manager) beginSetupAfterPairing(txnID ids.PairingTransactionID, class catalog.DeviceClass, descriptor device.Descriptor) (ids.DeviceID, error) {
	filled, err := m.validator.VerifyParams(class.ParamTypes, descriptor.Params, true)
	if err != nil {
		m.notifyPairingFinished(txnID, nil, err)
		return "", err
	}

	dev := &device.Device{
		ID:            ids.NewDeviceID(),
		DeviceClassID: class.ID,
		PluginID:      class.PluginID,
		ParentID:      descriptor.ParentID,
		Params:        filled,
		States:        make(map[ids.StateTypeID]interface{}),
		CreatedAt:     time.Now(),
	}

	err = m.runSetup(class, dev)
	m.notifyPairingFinished(txnID, dev, err)
	return dev.ID, err
}

// onPairingFinished handles the plugin's async pairingFinished signal for
// a Discovery-table transaction left pending by confirmDiscovery.
func (m *Manager) onPairingFinished(txnID ids.PairingTransactionID, status plugin.SetupStatus) {
	m.mu.Lock()
	txn, ok := m.pairingsDiscovery[txnID]
	if ok {
		delete(m.pairingsDiscovery, txnID)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("dropped pairingFinished for unknown transaction", "txn_id", txnID)
		return
	}

	if status != plugin.StatusSuccess {
		err := deviceerr.Wrap(deviceerr.CategorySetup, "onPairingFinished", deviceerr.ErrSetupFailed)
		m.notifyPairingFinished(txnID, nil, err)
		return
	}

	class, err := m.catalog.DeviceClass(txn.classID)
	if err != nil {
		m.notifyPairingFinished(txnID, nil, err)
		return
	}

	if _, err := m.beginSetupAfterPairing(txnID, class, txn.descriptor); err != nil && !deviceerr.IsAsync(err) {
		m.logger.Warn("setup after pairing failed", "txn_id", txnID, "error", err)
	}
}
