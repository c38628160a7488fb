package flightcontrol

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var (
	cfgLoaded = false
	config    = _landingconfig{}
)

// _landingconfig is a "hidden" struct, just use `landingConfig`.
type _landingconfig struct {
	gains           ControlGains
	flareAltitude   float64
	runwayThreshold float64
}

// landingConfig returns the landing configuration. Overrides are read from
// `conf.toml` in the directory named by the LANDING_CONFIG environment
// variable; without it the built-in defaults apply.
func landingConfig() _landingconfig {
	if cfgLoaded {
		return config
	}
	config = _landingconfig{
		gains:           DefaultGains(),
		flareAltitude:   20.0,
		runwayThreshold: 3000.0,
	}
	confPath := os.Getenv("LANDING_CONFIG")
	if confPath == "" {
		cfgLoaded = true
		return config
	}
	viper.SetConfigName("conf")
	viper.AddConfigPath(confPath)
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("%s/conf.toml not found", confPath))
	}

	viper.SetDefault("gains.kp_theta", config.gains.KpΘ)
	viper.SetDefault("gains.ki_theta", config.gains.KiΘ)
	viper.SetDefault("gains.kd_theta", config.gains.KdΘ)
	viper.SetDefault("gains.kp_alt", config.gains.KpAlt)
	viper.SetDefault("gains.ki_alt", config.gains.KiAlt)
	viper.SetDefault("gains.kd_alt", config.gains.KdAlt)
	viper.SetDefault("gains.kp_vel", config.gains.KpVel)
	viper.SetDefault("gains.ki_vel", config.gains.KiVel)
	viper.SetDefault("scenario.flare_altitude", config.flareAltitude)
	viper.SetDefault("scenario.runway_threshold", config.runwayThreshold)

	config.gains = ControlGains{
		KpΘ:   viper.GetFloat64("gains.kp_theta"),
		KiΘ:   viper.GetFloat64("gains.ki_theta"),
		KdΘ:   viper.GetFloat64("gains.kd_theta"),
		KpAlt: viper.GetFloat64("gains.kp_alt"),
		KiAlt: viper.GetFloat64("gains.ki_alt"),
		KdAlt: viper.GetFloat64("gains.kd_alt"),
		KpVel: viper.GetFloat64("gains.kp_vel"),
		KiVel: viper.GetFloat64("gains.ki_vel"),
	}
	config.flareAltitude = viper.GetFloat64("scenario.flare_altitude")
	config.runwayThreshold = viper.GetFloat64("scenario.runway_threshold")
	if config.flareAltitude <= 0 {
		panic("config scenario.flare_altitude must be positive")
	}
	cfgLoaded = true
	return config
}
