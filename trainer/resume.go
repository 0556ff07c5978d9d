package trainer

import "os"

import "github.com/pkg/errors"

// Resume loads the checkpoint at name into net when the file exists. It reports
// whether weights were loaded.
func Resume(net Checkpointer, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrap(err, "trainer: resume")
	}
	if err := net.ReadCompressedWeightsFromFile(name); err != nil {
		return false, err
	}
	log.Infof("resumed from checkpoint %s", name)
	return true, nil
}
