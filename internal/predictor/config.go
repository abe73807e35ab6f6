package predictor

type AlgType string

const (
	AlgTypeLof   AlgType = "LOF"
	AlgTypeLdof  AlgType = "LDOF"
	AlgTypeLoci  AlgType = "LOCI"
	AlgTypeCblof AlgType = "CBLOF"
)

type Config struct {
	Type AlgType `envconfig:"SOD_PREDICTOR_TYPE" default:"LOF"`
	// Number of tasks the shared worker pool runs at once, 0 means GOMAXPROCS
	PoolSize int `envconfig:"SOD_PREDICTOR_POOL_SIZE" default:"0"`
}

func (c Config) PredictorType() AlgType {
	return c.Type
}
