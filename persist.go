package gain_go

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// networkSnapshot On-disk format for network weights. tensor.Dense carries its
// own gob encoding, so the snapshot is just a named list of weight tensors.
type networkSnapshot struct {
	Names   []string
	Weights []*tensor.Dense
}

// SaveWeights Dumps all learnable nodes' values to the provided path
func (net *Network) SaveWeights(path string) error {
	snapshot := networkSnapshot{}
	for _, node := range net.Learnables() {
		value := node.Value()
		if value == nil {
			return fmt.Errorf("Node '%s' has no value to save", node.Name())
		}
		dense, ok := value.(*tensor.Dense)
		if !ok {
			return fmt.Errorf("Node's '%s' value of type %T is not a dense tensor", node.Name(), value)
		}
		snapshot.Names = append(snapshot.Names, node.Name())
		snapshot.Weights = append(snapshot.Weights, dense)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "Can't create weights file")
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(snapshot); err != nil {
		return errors.Wrap(err, "Can't encode weights")
	}
	return nil
}

// LoadWeights Restores learnable nodes' values from the provided path.
// Network structure must match the one used for SaveWeights.
func (net *Network) LoadWeights(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "Can't open weights file")
	}
	defer f.Close()
	snapshot := networkSnapshot{}
	if err := gob.NewDecoder(f).Decode(&snapshot); err != nil {
		return errors.Wrap(err, "Can't decode weights")
	}
	if len(snapshot.Names) != len(snapshot.Weights) {
		return fmt.Errorf("Malformed weights file: %d names against %d tensors", len(snapshot.Names), len(snapshot.Weights))
	}
	stored := make(map[string]*tensor.Dense, len(snapshot.Names))
	for i, name := range snapshot.Names {
		stored[name] = snapshot.Weights[i]
	}
	for _, node := range net.Learnables() {
		dense, found := stored[node.Name()]
		if !found {
			return fmt.Errorf("Weights file has no entry for node '%s'", node.Name())
		}
		if !node.Shape().Eq(dense.Shape()) {
			return fmt.Errorf("Node '%s' has shape %v, but stored tensor has shape %v", node.Name(), node.Shape(), dense.Shape())
		}
		if err := gorgonia.Let(node, dense); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't assign stored value to node '%s'", node.Name()))
		}
	}
	return nil
}
