//go:build windows

package platform

import (
	"context"
	"fmt"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// HKEY_LOCAL_MACHINE hive constant for StdRegProv.
const hkeyLocalMachine uint32 = 0x80000002

// regReadDWORD reads an HKLM DWORD value via the WMI StdRegProv class.
func regReadDWORD(ctx context.Context, subKey, valueName string) (uint32, error) {
	var value uint32
	err := withStdRegProv(func(reg *ole.IDispatch) error {
		outParams, err := oleutil.CallMethod(reg, "GetDWORDValue", hkeyLocalMachine, subKey, valueName)
		if err != nil {
			return fmt.Errorf("GetDWORDValue %s\\%s: %w", subKey, valueName, err)
		}
		result := outParams.ToIDispatch()
		defer result.Release()

		// StdRegProv reports failure through ReturnValue, not an HRESULT:
		// a missing value still yields out-params with uValue left zero.
		ret, err := oleutil.GetProperty(result, "ReturnValue")
		if err != nil {
			return fmt.Errorf("read ReturnValue: %w", err)
		}
		if code := uint32(ret.Val); code != 0 {
			return fmt.Errorf("GetDWORDValue %s\\%s: registry error %d", subKey, valueName, code)
		}

		raw, err := oleutil.GetProperty(result, "uValue")
		if err != nil {
			return fmt.Errorf("read uValue: %w", err)
		}
		value = uint32(raw.Val)
		return nil
	})
	return value, err
}

// withStdRegProv initializes COM, connects to the root\default namespace,
// and invokes fn with the StdRegProv class object.
func withStdRegProv(fn func(reg *ole.IDispatch) error) error {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means COM was already initialized on this thread.
		if !ok || oleErr.Code() != 0x00000001 {
			return fmt.Errorf("COM initialization failed: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return fmt.Errorf("create WMI locator: %w", err)
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("get IDispatch: %w", err)
	}
	defer locator.Release()

	serviceRaw, err := oleutil.CallMethod(locator, "ConnectServer", ".", `root\default`)
	if err != nil {
		return fmt.Errorf("connect to root\\default: %w", err)
	}
	service := serviceRaw.ToIDispatch()
	defer service.Release()

	regRaw, err := oleutil.CallMethod(service, "Get", "StdRegProv")
	if err != nil {
		return fmt.Errorf("get StdRegProv: %w", err)
	}
	reg := regRaw.ToIDispatch()
	defer reg.Release()

	return fn(reg)
}
