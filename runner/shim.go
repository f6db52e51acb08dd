package runner

import "fmt"

// parentShim returns the script injected before any page content runs.
//
// In production the test page runs inside an iframe and reports to its
// embedding frame with window.parent.postMessage. Here there is no
// embedding frame, so the shim replaces window.parent with an object whose
// postMessage also hands the message to the exposed host binding. When a
// real distinct parent exists the message is still forwarded to it, so the
// page code behaves identically either way.
//
// Contract with the page: messages are JSON objects with a "type" field of
// test-pass, test-fail (both with "message") or test-next (no payload).
// Anything else is dropped by the host side.
func parentShim(binding string) string {
	return fmt.Sprintf(`(() => {
  const deliver = window[%[1]q];
  const realParent = window.parent;
  const realPost = realParent && realParent.postMessage
    ? realParent.postMessage.bind(realParent) : null;
  Object.defineProperty(window, 'parent', {
    configurable: true,
    value: {
      postMessage: (message, targetOrigin, transfer) => {
        try {
          deliver(typeof message === 'string' ? message : JSON.stringify(message));
        }
        catch (e) {
          // The binding outlives every navigation we trigger; a failure here
          // means the tab is tearing down and the message is moot.
        }
        if (realPost && realParent !== window) {
          realPost(message, targetOrigin, transfer);
        }
      }
    }
  });
})();`, binding)
}
